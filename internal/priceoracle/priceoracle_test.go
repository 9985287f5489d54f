package priceoracle

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/synindex/bridge-analytics/internal/config"
)

type fakeStore struct {
	entries map[string]string
	sets    map[string]map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]string), sets: make(map[string]map[string]bool)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := f.entries[key]
	return v, ok, nil
}

func (f *fakeStore) Set(_ context.Context, key, value string) error {
	f.entries[key] = value
	return nil
}

func (f *fakeStore) SAdd(_ context.Context, key, member string) error {
	if f.sets[key] == nil {
		f.sets[key] = make(map[string]bool)
	}
	f.sets[key][member] = true
	return nil
}

func (f *fakeStore) SRem(_ context.Context, key, member string) error {
	delete(f.sets[key], member)
	return nil
}

func (f *fakeStore) SMembers(_ context.Context, key string) ([]string, error) {
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

type fakeAddrMap struct {
	m map[string]string
}

func (a fakeAddrMap) CGIDFor(chain, tokenAddr string) (string, bool) {
	cgid, ok := a.m[chain+":"+tokenAddr]
	return cgid, ok
}

func TestGetHistoricMissRecordsAndReturnsZero(t *testing.T) {
	fs := newFakeStore()
	o := NewOracle(fs, fakeAddrMap{}, nil)
	ctx := context.Background()

	price, err := o.GetHistoric(ctx, "ethereum", "2024-01-01")
	if err != nil {
		t.Fatalf("GetHistoric: %v", err)
	}
	if !price.IsZero() {
		t.Fatalf("price = %s, want 0 on miss", price)
	}

	members, _ := fs.SMembers(ctx, missingSetKey())
	if len(members) != 2 {
		t.Fatalf("missing set has %d members, want 2 (bare + :usd alias)", len(members))
	}
}

func TestGetHistoricWalksBack(t *testing.T) {
	fs := newFakeStore()
	o := NewOracle(fs, fakeAddrMap{}, nil)
	ctx := context.Background()

	_ = fs.Set(ctx, priceKey("ethereum", "2024-01-03"), "100.5")

	price, err := o.GetHistoric(ctx, "ethereum", "2024-01-05")
	if err != nil {
		t.Fatalf("GetHistoric: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("100.5")) {
		t.Fatalf("price = %s, want 100.5 (walked back to 01-03)", price)
	}
}

func TestGetForAddressPinned(t *testing.T) {
	fs := newFakeStore()
	pins := []config.PinnedPrice{{Chain: "ethereum", Address: "0xusdc", USD: decimal.NewFromInt(1)}}
	o := NewOracle(fs, fakeAddrMap{}, pins)
	ctx := context.Background()

	price, err := o.GetForAddress(ctx, "ethereum", "0xusdc", "2024-01-01")
	if err != nil {
		t.Fatalf("GetForAddress: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("price = %s, want 1 (pinned stablecoin)", price)
	}
}

func TestGetForAddressUnknownReturnsZero(t *testing.T) {
	fs := newFakeStore()
	o := NewOracle(fs, fakeAddrMap{m: map[string]string{}}, nil)
	ctx := context.Background()

	price, err := o.GetForAddress(ctx, "ethereum", "0xdeadbeef", "2024-01-01")
	if err != nil {
		t.Fatalf("GetForAddress: %v", err)
	}
	if !price.IsZero() {
		t.Fatalf("price = %s, want 0 for unknown token", price)
	}
}

func TestGetForAddressSYNPreGenesisProxiesNRV(t *testing.T) {
	fs := newFakeStore()
	_ = fs.Set(context.Background(), priceKey("nrv", "2021-01-01"), "5")
	o := NewOracle(fs, fakeAddrMap{m: map[string]string{"ethereum:0xsyn": "syn"}}, nil)

	price, err := o.GetForAddress(context.Background(), "ethereum", "0xsyn", "2021-01-01")
	if err != nil {
		t.Fatalf("GetForAddress: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("price = %s, want 2 (NRV 5 / 2.5)", price)
	}
}
