// Package stores groups the goLink.IdentityStore implementations:
//
//   - yamlstore: a users.yml document keyed by external account id.
//   - redisstore: one Redis hash, writes buffered until Save.
//   - sqlitestore: one SQLite table, writes buffered until Save.
//
// Every implementation treats the external account id as the only lookup
// key and makes all prior Set calls durable on Save.
package stores
