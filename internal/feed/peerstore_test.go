package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/QingfengHuu/trending-nft/internal/storage"
)

func newTestPeerStore(t *testing.T) *PeerStore {
	t.Helper()
	return NewPeerStore(storage.NewMemory())
}

func testRecord(id string) PeerRecord {
	return PeerRecord{
		ID:       id,
		Addrs:    []string{"/ip4/127.0.0.1/tcp/9000"},
		LastSeen: time.Now().Unix(),
		Source:   "seed",
	}
}

func TestPeerStore_SaveAndLoadAll(t *testing.T) {
	ps := newTestPeerStore(t)

	if err := ps.Save(testRecord("peer-a")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := ps.Save(testRecord("peer-b")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	records, err := ps.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	seen := map[string]bool{}
	for _, r := range records {
		seen[r.ID] = true
		if len(r.Addrs) != 1 {
			t.Errorf("record %s lost addrs", r.ID)
		}
	}
	if !seen["peer-a"] || !seen["peer-b"] {
		t.Error("LoadAll missing saved records")
	}
}

func TestPeerStore_SaveOverwrites(t *testing.T) {
	ps := newTestPeerStore(t)

	rec := testRecord("peer-a")
	if err := ps.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec.Addrs = []string{"/ip4/10.0.0.1/tcp/9001"}
	rec.Source = "dht"
	if err := ps.Save(rec); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}

	records, err := ps.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Addrs[0] != "/ip4/10.0.0.1/tcp/9001" {
		t.Errorf("overwrite did not take: %v", records[0].Addrs)
	}
	if records[0].Source != "dht" {
		t.Errorf("source = %q, want dht", records[0].Source)
	}
}

func TestPeerStore_Delete(t *testing.T) {
	ps := newTestPeerStore(t)

	if err := ps.Save(testRecord("peer-a")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := ps.Delete("peer-a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	records, err := ps.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected 0 records after delete, got %d", len(records))
	}

	// Deleting a missing peer is a no-op.
	if err := ps.Delete("peer-a"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
}

func TestPeerStore_PruneStale(t *testing.T) {
	ps := newTestPeerStore(t)

	fresh := testRecord("peer-fresh")
	if err := ps.Save(fresh); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stale := testRecord("peer-stale")
	stale.LastSeen = time.Now().Add(-48 * time.Hour).Unix()
	if err := ps.Save(stale); err != nil {
		t.Fatalf("Save: %v", err)
	}

	pruned, err := ps.PruneStale(24 * time.Hour)
	if err != nil {
		t.Fatalf("PruneStale: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}

	records, err := ps.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].ID != "peer-fresh" {
		t.Errorf("wrong record survived: %s", records[0].ID)
	}
}

func TestPeerStore_Count(t *testing.T) {
	ps := newTestPeerStore(t)

	count, err := ps.Count()
	if err != nil {
		t.Fatalf("Count empty: %v", err)
	}
	if count != 0 {
		t.Errorf("empty store count = %d", count)
	}

	for i := 0; i < 5; i++ {
		if err := ps.Save(testRecord(fmt.Sprintf("peer-%d", i))); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	count, err = ps.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
}

func TestPeerStore_CapacityLimit(t *testing.T) {
	ps := newTestPeerStore(t)

	for i := 0; i < maxPersistedPeers; i++ {
		if err := ps.Save(testRecord(fmt.Sprintf("peer-%d", i))); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	// A new record past the cap is silently skipped.
	if err := ps.Save(testRecord("peer-overflow")); err != nil {
		t.Fatalf("Save overflow: %v", err)
	}
	count, err := ps.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != maxPersistedPeers {
		t.Errorf("count = %d, want %d", count, maxPersistedPeers)
	}

	// Updating an existing record still works at capacity.
	rec := testRecord("peer-0")
	rec.Source = "gossip"
	if err := ps.Save(rec); err != nil {
		t.Fatalf("Save update at cap: %v", err)
	}
}
