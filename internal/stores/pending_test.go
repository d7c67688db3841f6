package stores

import (
	"testing"
	"time"
)

func pendingEntry(code, account string, expiresAt time.Time) PendingEntry {
	return PendingEntry{
		Code:              code,
		RequestID:         "req-" + code,
		RequestingAccount: account,
		ExternalAccountID: "123456789012345678",
		ExpiresAt:         expiresAt,
	}
}

func TestPendingTableReserveRejectsLiveDuplicate(t *testing.T) {
	table := NewPendingTable()
	now := time.Unix(1_700_000_000, 0)

	if !table.Reserve(pendingEntry("042017", "Alice", time.Time{}), now) {
		t.Fatal("expected first reserve to succeed")
	}
	if table.Reserve(pendingEntry("042017", "Bob", time.Time{}), now) {
		t.Fatal("expected duplicate reserve to be refused")
	}

	entry, found, _ := table.Lookup("042017", now)
	if !found || entry.RequestingAccount != "Alice" {
		t.Fatalf("expected Alice's entry to survive, got %+v found=%v", entry, found)
	}
}

func TestPendingTableReserveReplacesExpired(t *testing.T) {
	table := NewPendingTable()
	now := time.Unix(1_700_000_000, 0)

	table.Reserve(pendingEntry("000001", "Alice", now.Add(time.Minute)), now)
	later := now.Add(2 * time.Minute)
	if !table.Reserve(pendingEntry("000001", "Bob", time.Time{}), later) {
		t.Fatal("expected reserve over expired entry to succeed")
	}
	entry, found, _ := table.Lookup("000001", later)
	if !found || entry.RequestingAccount != "Bob" {
		t.Fatalf("expected Bob's entry, got %+v", entry)
	}
}

func TestPendingTableLookupEvictsExpired(t *testing.T) {
	table := NewPendingTable()
	now := time.Unix(1_700_000_000, 0)
	table.Reserve(pendingEntry("123456", "Alice", now.Add(time.Minute)), now)

	_, found, expired := table.Lookup("123456", now.Add(time.Minute))
	if found || !expired {
		t.Fatalf("expected expired lookup, found=%v expired=%v", found, expired)
	}
	if table.Len() != 0 {
		t.Fatalf("expected expired entry to be evicted, len=%d", table.Len())
	}

	_, found, expired = table.Lookup("123456", now)
	if found || expired {
		t.Fatal("expected plain miss after eviction")
	}
}

func TestPendingTableSweep(t *testing.T) {
	table := NewPendingTable()
	now := time.Unix(1_700_000_000, 0)
	table.Reserve(pendingEntry("000001", "a", now.Add(time.Second)), now)
	table.Reserve(pendingEntry("000002", "b", now.Add(time.Hour)), now)
	table.Reserve(pendingEntry("000003", "c", time.Time{}), now)

	evicted := table.Sweep(now.Add(time.Minute))
	if len(evicted) != 1 || evicted[0].Code != "000001" {
		t.Fatalf("expected only 000001 evicted, got %+v", evicted)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 remaining entries, got %d", table.Len())
	}
}

func TestPendingTableRemove(t *testing.T) {
	table := NewPendingTable()
	now := time.Unix(1_700_000_000, 0)
	table.Reserve(pendingEntry("654321", "Alice", time.Time{}), now)
	table.Remove("654321")
	table.Remove("654321")

	if _, found, _ := table.Lookup("654321", now); found {
		t.Fatal("expected removed entry to be gone")
	}
}
