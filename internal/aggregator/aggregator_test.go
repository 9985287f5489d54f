package aggregator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/synindex/bridge-analytics/internal/models"
)

// fakeStore is an in-memory KVStore for testing merge logic without a
// Postgres connection — same role as the teacher's in-package fakes for
// Repository in postgres_ingest_test.go.
type fakeStore struct {
	entries map[string]string
	cursors map[string]models.Cursor
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]string), cursors: make(map[string]models.Cursor)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := f.entries[key]
	return v, ok, nil
}

func (f *fakeStore) Set(_ context.Context, key, value string) error {
	f.entries[key] = value
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key, value string) (bool, error) {
	if _, ok := f.entries[key]; ok {
		return false, nil
	}
	f.entries[key] = value
	return true, nil
}

func (f *fakeStore) AdvanceCursor(_ context.Context, chain, namespace, address string, block uint64, txIndex int64) error {
	key := chain + ":" + namespace + ":" + address
	f.cursors[key] = models.Cursor{Chain: chain, Namespace: namespace, Address: address, MaxBlockStored: block, TxIndex: txIndex}
	return nil
}

func bridgeInEvent(block uint64, txIndex int64, amount string) models.Event {
	amt, _ := decimal.NewFromString(amount)
	return models.Event{
		Kind:    models.EventBridgeIn,
		Chain:   "ethereum",
		Date:    "2024-01-01",
		Block:   block,
		TxIndex: txIndex,
		Asset:   "0xusdc",
		Amount:  amt,
		Fee:     decimal.Zero,
	}
}

func TestMergeBridgeInAccumulates(t *testing.T) {
	fs := newFakeStore()
	a := &Aggregator{Store: fs}
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	if err := a.Merge(ctx, bridgeInEvent(100, 0, "10"), "0xbridge", now); err != nil {
		t.Fatalf("merge 1: %v", err)
	}
	if err := a.Merge(ctx, bridgeInEvent(100, 1, "5"), "0xbridge", now); err != nil {
		t.Fatalf("merge 2: %v", err)
	}

	var bucket models.BridgeInBucket
	raw, ok, _ := fs.Get(ctx, bridgeInKey("ethereum", "2024-01-01", "0xusdc"))
	if !ok {
		t.Fatalf("bucket not found")
	}
	if err := json.Unmarshal([]byte(raw), &bucket); err != nil {
		t.Fatalf("unmarshal bucket: %v", err)
	}
	if !bucket.Amount.Equal(decimal.RequireFromString("15")) {
		t.Fatalf("amount = %s, want 15", bucket.Amount)
	}
	if bucket.TxCount != 2 {
		t.Fatalf("tx_count = %d, want 2", bucket.TxCount)
	}
}

// TestMergeIsOrderIndependent checks invariant 2: merging the same two
// events in either order yields identical counters.
func TestMergeIsOrderIndependent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	e1 := bridgeInEvent(100, 0, "10")
	e2 := bridgeInEvent(101, 0, "5")

	fsA := newFakeStore()
	aA := &Aggregator{Store: fsA}
	_ = aA.Merge(ctx, e1, "0xbridge", now)
	_ = aA.Merge(ctx, e2, "0xbridge", now)

	fsB := newFakeStore()
	aB := &Aggregator{Store: fsB}
	_ = aB.Merge(ctx, e2, "0xbridge", now)
	_ = aB.Merge(ctx, e1, "0xbridge", now)

	key := bridgeInKey("ethereum", "2024-01-01", "0xusdc")
	rawA, _, _ := fsA.Get(ctx, key)
	rawB, _, _ := fsB.Get(ctx, key)

	var bucketA, bucketB models.BridgeInBucket
	_ = json.Unmarshal([]byte(rawA), &bucketA)
	_ = json.Unmarshal([]byte(rawB), &bucketB)

	if !bucketA.Amount.Equal(bucketB.Amount) || bucketA.TxCount != bucketB.TxCount {
		t.Fatalf("order dependence detected: %+v vs %+v", bucketA, bucketB)
	}
}

func TestDateAnchorFirstWriterWins(t *testing.T) {
	fs := newFakeStore()
	a := &Aggregator{Store: fs}
	ctx := context.Background()
	first := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	second := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)

	_ = a.Merge(ctx, bridgeInEvent(100, 0, "1"), "0xbridge", first)
	_ = a.Merge(ctx, bridgeInEvent(200, 0, "1"), "0xbridge", second)

	raw, ok, _ := fs.Get(ctx, dateAnchorKey("ethereum", "2024-01-01"))
	if !ok {
		t.Fatalf("anchor not set")
	}
	var anchor models.DateAnchor
	_ = json.Unmarshal([]byte(raw), &anchor)
	if anchor.Block != 100 {
		t.Fatalf("anchor block = %d, want 100 (first writer)", anchor.Block)
	}
}

func TestPoolFeeChangeOverwritesNotAccumulates(t *testing.T) {
	fs := newFakeStore()
	a := &Aggregator{Store: fs}
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	ev1 := models.Event{Kind: models.EventPoolFeeChange, Chain: "ethereum", Date: "2024-01-01", Block: 100, PoolKind: models.PoolKindNUSD, FeeKind: models.FeeKindSwap, NewValue: 4_000_000}
	ev2 := models.Event{Kind: models.EventPoolFeeChange, Chain: "ethereum", Date: "2024-01-01", Block: 200, PoolKind: models.PoolKindNUSD, FeeKind: models.FeeKindSwap, NewValue: 5_000_000}

	_ = a.Merge(ctx, ev1, "0xpool", now)
	_ = a.Merge(ctx, ev2, "0xpool", now)

	raw, _, _ := fs.Get(ctx, poolFeeKey("ethereum", "2024-01-01", models.PoolKindNUSD, models.FeeKindSwap))
	var bucket models.PoolFeeBucket
	_ = json.Unmarshal([]byte(raw), &bucket)
	if bucket.NewValue != 5_000_000 {
		t.Fatalf("new_value = %d, want 5000000 (last write wins)", bucket.NewValue)
	}
}
