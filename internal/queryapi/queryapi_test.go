package queryapi

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/synindex/bridge-analytics/internal/models"
)

// fakeStore is an in-memory KVStore double mirroring store.Store's glob+
// group-by-segment Keys contract without a Postgres connection.
type fakeStore struct {
	entries map[string]string
}

func newFakeStore() *fakeStore { return &fakeStore{entries: map[string]string{}} }

func (f *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := f.entries[key]
	return v, ok, nil
}

func (f *fakeStore) put(key string, v interface{}) {
	b, _ := json.Marshal(v)
	f.entries[key] = string(b)
}

func (f *fakeStore) Keys(_ context.Context, pattern string, groupIdx int) (map[string][]string, error) {
	prefix, suffix := splitStar(pattern)
	out := map[string][]string{}
	for key := range f.entries {
		if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
			continue
		}
		parts := strings.Split(key, ":")
		group := ""
		if groupIdx >= 0 && groupIdx < len(parts) {
			group = parts[groupIdx]
		}
		out[group] = append(out[group], key)
	}
	return out, nil
}

// splitStar handles the single '*'-per-segment patterns queryapi builds
// (e.g. "ethereum:bridge:*:*:IN*"); good enough for these tests without
// reimplementing full glob matching.
func splitStar(pattern string) (prefix, suffix string) {
	i := strings.Index(pattern, "*")
	if i < 0 {
		return pattern, ""
	}
	j := strings.LastIndex(pattern, "*")
	return pattern[:i], pattern[j+1:]
}

// fakePrices is a flat (chain, asset, date) -> price lookup double.
type fakePrices struct {
	prices map[string]decimal.Decimal
}

func (f *fakePrices) GetForAddress(_ context.Context, chain, tokenAddr, date string) (decimal.Decimal, error) {
	key := chain + "|" + tokenAddr + "|" + date
	if p, ok := f.prices[key]; ok {
		return p, nil
	}
	return decimal.NewFromInt(1), nil
}

func testAPI(store *fakeStore, prices *fakePrices) *API {
	return &API{
		Store:  store,
		Prices: prices,
		Chains: map[string]models.Chain{
			"ethereum": {Name: "ethereum", ChainID: 1, Treasury: "0xtreasury"},
		},
	}
}

func TestChainVolumeSumsINBucketsByAsset(t *testing.T) {
	store := newFakeStore()
	store.put("ethereum:bridge:2024-01-01:usdc:IN", models.BridgeInBucket{
		Amount: decimal.NewFromInt(100), TxCount: 2,
	})
	store.put("ethereum:bridge:2024-01-02:usdc:IN", models.BridgeInBucket{
		Amount: decimal.NewFromInt(50), TxCount: 1,
	})
	prices := &fakePrices{prices: map[string]decimal.Decimal{
		"ethereum|usdc|2024-01-01": decimal.NewFromInt(1),
		"ethereum|usdc|2024-01-02": decimal.NewFromInt(1),
	}}
	api := testAPI(store, prices)

	view, err := api.ChainVolume(context.Background(), "ethereum", models.DirectionIn)
	if err != nil {
		t.Fatalf("ChainVolume: %v", err)
	}
	if len(view.Data) != 2 {
		t.Fatalf("expected 2 records, got %d", len(view.Data))
	}
	if !view.Stats.TotalUSDAdjusted.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected total 150, got %s", view.Stats.TotalUSDAdjusted)
	}
	if view.Stats.TotalTxCount != 3 {
		t.Fatalf("expected 3 tx, got %d", view.Stats.TotalTxCount)
	}
}

func TestChainVolumeForAddressFiltersByToken(t *testing.T) {
	store := newFakeStore()
	store.put("ethereum:bridge:2024-01-01:usdc:IN", models.BridgeInBucket{Amount: decimal.NewFromInt(100)})
	store.put("ethereum:bridge:2024-01-01:usdt:IN", models.BridgeInBucket{Amount: decimal.NewFromInt(200)})
	api := testAPI(store, &fakePrices{prices: map[string]decimal.Decimal{}})

	out, err := api.ChainVolumeForAddress(context.Background(), "ethereum", "USDC", models.DirectionIn)
	if err != nil {
		t.Fatalf("ChainVolumeForAddress: %v", err)
	}
	if len(out) != 1 || out[0].Asset != "usdc" {
		t.Fatalf("expected only usdc record, got %+v", out)
	}
}

func TestBridgeFeesSumsAcrossDates(t *testing.T) {
	store := newFakeStore()
	store.put("ethereum:bridge:2024-01-01:usdc:IN", models.BridgeInBucket{Fees: decimal.NewFromInt(1)})
	store.put("ethereum:bridge:2024-01-02:usdc:IN", models.BridgeInBucket{Fees: decimal.NewFromInt(2)})
	api := testAPI(store, &fakePrices{prices: map[string]decimal.Decimal{}})

	out, err := api.BridgeFees(context.Background(), "ethereum", "usdc")
	if err != nil {
		t.Fatalf("BridgeFees: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 dates, got %d", len(out))
	}
	if out[0].Date > out[1].Date {
		t.Fatalf("expected ascending dates, got %v", out)
	}
}

func TestChainVolumeTotalRollsUpAcrossChains(t *testing.T) {
	store := newFakeStore()
	store.put("ethereum:bridge:2024-01-01:usdc:IN", models.BridgeInBucket{Amount: decimal.NewFromInt(10)})
	api := testAPI(store, &fakePrices{prices: map[string]decimal.Decimal{}})

	view, err := api.ChainVolumeTotal(context.Background(), models.DirectionIn)
	if err != nil {
		t.Fatalf("ChainVolumeTotal: %v", err)
	}
	if !view.Totals["ethereum"].Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected ethereum total 10, got %s", view.Totals["ethereum"])
	}
}

// fakeChainClient returns a fixed 32-byte word for every call, simulating a
// uint256 contract response.
type fakeChainClient struct {
	word decimal.Decimal
}

func (f *fakeChainClient) Call(_ context.Context, _ string, _ []byte, _ *uint64) ([]byte, error) {
	out := make([]byte, 32)
	f.word.BigInt().FillBytes(out)
	return out, nil
}

func TestTreasuryBalancesValuesEveryToken(t *testing.T) {
	store := newFakeStore()
	api := testAPI(store, &fakePrices{prices: map[string]decimal.Decimal{}})
	api.Chain = &fakeChainClient{word: decimal.NewFromInt(1_000_000)}
	api.Tokens = func(chain string) []models.Token {
		return []models.Token{{Chain: chain, Address: "0xusdc", Symbol: "USDC", Decimals: 6}}
	}

	out, err := api.TreasuryBalances(context.Background(), "ethereum", nil)
	if err != nil {
		t.Fatalf("TreasuryBalances: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 token balance, got %d", len(out))
	}
	if !out[0].Raw.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected decimalized balance 1, got %s", out[0].Raw)
	}
}

func TestTreasuryBalancesErrorsWithoutTreasuryConfigured(t *testing.T) {
	store := newFakeStore()
	api := testAPI(store, &fakePrices{prices: map[string]decimal.Decimal{}})
	api.Chains["ethereum"] = models.Chain{Name: "ethereum"} // no Treasury set
	api.Chain = &fakeChainClient{}

	if _, err := api.TreasuryBalances(context.Background(), "ethereum", nil); err == nil {
		t.Fatal("expected error for missing treasury config")
	}
}
