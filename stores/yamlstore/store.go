// Package yamlstore persists linked accounts in a YAML document shaped like
// the users.yml file of the game server plugin:
//
//	"123456789012345678":
//	  player: Alice
//	  discord_id: "123456789012345678"
package yamlstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	goLink "github.com/MrEthical07/goLink"
	"gopkg.in/yaml.v3"
)

// Store keeps the saved document in memory. Set stages a record; Save
// rewrites the file through a temp file and rename. Exists and Get see saved
// records only, and a failed Save discards the stage.
type Store struct {
	path string

	mu      sync.RWMutex
	records map[string]goLink.LinkedAccount
	staged  map[string]goLink.LinkedAccount
}

// Open loads path, or starts empty when the file does not exist yet.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("yamlstore: path is required")
	}

	s := &Store{
		path:    filepath.Clean(path),
		records: map[string]goLink.LinkedAccount{},
		staged:  map[string]goLink.LinkedAccount{},
	}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("yamlstore: read %s: %w", s.path, err)
	}

	if err := yaml.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("yamlstore: parse %s: %w", s.path, err)
	}
	if s.records == nil {
		s.records = map[string]goLink.LinkedAccount{}
	}
	for id, record := range s.records {
		if record.ExternalAccountID == "" {
			record.ExternalAccountID = id
			s.records[id] = record
		}
	}
	return s, nil
}

func (s *Store) Exists(ctx context.Context, externalAccountID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[externalAccountID]
	return ok, nil
}

// Get returns the record stored for externalAccountID.
func (s *Store) Get(ctx context.Context, externalAccountID string) (goLink.LinkedAccount, bool, error) {
	if err := ctx.Err(); err != nil {
		return goLink.LinkedAccount{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[externalAccountID]
	return record, ok, nil
}

func (s *Store) Set(ctx context.Context, externalAccountID string, record goLink.LinkedAccount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if externalAccountID == "" {
		return errors.New("yamlstore: external account id is required")
	}
	record.ExternalAccountID = externalAccountID

	s.mu.Lock()
	defer s.mu.Unlock()

	s.staged[externalAccountID] = record
	return nil
}

// Save writes the saved records plus the stage. The stage is cleared either
// way; on failure the file and the saved records are unchanged.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer clear(s.staged)

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.staged) == 0 {
		return nil
	}

	next := make(map[string]goLink.LinkedAccount, len(s.records)+len(s.staged))
	for id, record := range s.records {
		next[id] = record
	}
	for id, record := range s.staged {
		next[id] = record
	}

	data, err := yaml.Marshal(next)
	if err != nil {
		return fmt.Errorf("yamlstore: encode: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("yamlstore: write %s: %w", s.path, err)
	}
	s.records = next
	return nil
}

// Len returns the number of saved records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".users-*.yml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
