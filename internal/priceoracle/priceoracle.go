// Package priceoracle resolves historical and spot USD prices, cache-first
// over Store/Prices, with misses recorded for a separate backfill job —
// never blocking the indexing or query path on an external fetch
// (spec.md §3.2 invariant 6). Grounded on the teacher's market.PriceCache
// nearest-date lookup in market/price_cache.go, adapted from an in-process
// map+mutex cache to a Store-backed one (the contract requires durability
// across restarts) and from float64 to decimal.Decimal.
package priceoracle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/synindex/bridge-analytics/internal/config"
)

// synGenesisCutoff is the date before which SYN has no direct price
// history; spec.md §4.6 pins a proxy of NRV_price/2.5 for those dates.
var synGenesisCutoff = time.Date(2021, 8, 30, 0, 0, 0, 0, time.UTC)

var nrvProxyDivisor = decimal.NewFromFloat(2.5)

const maxWalkBackDays = 7

// KVStore is the slice of store.Store the oracle needs.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	SAdd(ctx context.Context, key, member string) error
	SRem(ctx context.Context, key, member string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// AddressMap resolves (chain, token address) -> Coingecko id, via the
// static per-chain mapping spec.md §4.6 describes. A zero-value returned
// cgid with ok=false means "unknown token" (price resolves to zero).
type AddressMap interface {
	CGIDFor(chain, tokenAddr string) (cgid string, ok bool)
}

// Oracle is spec.md §4.6's PriceOracle component.
type Oracle struct {
	Store      KVStore
	Addresses  AddressMap
	Pins       []config.PinnedPrice
	pinsByAddr map[string]decimal.Decimal
}

// NewOracle indexes Pins by (chain, lowercased address) for O(1) lookup in
// GetForAddress.
func NewOracle(store KVStore, addrs AddressMap, pins []config.PinnedPrice) *Oracle {
	byAddr := make(map[string]decimal.Decimal, len(pins))
	for _, p := range pins {
		byAddr[pinKey(p.Chain, p.Address)] = p.USD
	}
	return &Oracle{Store: store, Addresses: addrs, Pins: pins, pinsByAddr: byAddr}
}

func pinKey(chain, address string) string { return chain + ":" + address }

func priceKey(cgid, date string) string      { return cgid + ":" + date }
func priceUSDAliasKey(cgid, date string) string { return cgid + ":" + date + ":usd" }
func missingSetKey() string                  { return "prices:missing" }

// GetHistoric reads the cached price for (cgid, date). On a miss it
// records both the bare and ":usd"-suffixed keys into the missing set for
// refreshMissingPrices to fill, then walks back up to maxWalkBackDays
// looking for the nearest prior date before giving up and returning zero.
func (o *Oracle) GetHistoric(ctx context.Context, cgid, date string) (decimal.Decimal, error) {
	if v, ok, err := o.Store.Get(ctx, priceKey(cgid, date)); err != nil {
		return decimal.Zero, err
	} else if ok {
		return parsePrice(v)
	}

	if err := o.markMissing(ctx, cgid, date); err != nil {
		return decimal.Zero, err
	}

	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return decimal.Zero, fmt.Errorf("priceoracle: bad date %q: %w", date, err)
	}
	for i := 1; i <= maxWalkBackDays; i++ {
		prior := d.AddDate(0, 0, -i).Format("2006-01-02")
		if v, ok, err := o.Store.Get(ctx, priceKey(cgid, prior)); err != nil {
			return decimal.Zero, err
		} else if ok {
			return parsePrice(v)
		}
	}

	return decimal.Zero, nil
}

// GetSpot proxies GetHistoric for today's UTC date.
func (o *Oracle) GetSpot(ctx context.Context, cgid string) (decimal.Decimal, error) {
	return o.GetHistoric(ctx, cgid, time.Now().UTC().Format("2006-01-02"))
}

// GetForAddress resolves a token address to USD via a pinned constant, the
// SYN pre-genesis proxy rule, or the per-chain address->cgid mapping, in
// that order. An unresolvable token returns zero, never an error — price
// lookups never block the caller (spec.md §3.2 invariant 6).
func (o *Oracle) GetForAddress(ctx context.Context, chain, tokenAddr string, date string) (decimal.Decimal, error) {
	if pinned, ok := o.pinsByAddr[pinKey(chain, tokenAddr)]; ok {
		return pinned, nil
	}

	cgid, ok := o.Addresses.CGIDFor(chain, tokenAddr)
	if !ok {
		return decimal.Zero, nil
	}

	if cgid == "syn" {
		if d, err := time.Parse("2006-01-02", date); err == nil && d.Before(synGenesisCutoff) {
			nrv, err := o.GetHistoric(ctx, "nrv", date)
			if err != nil {
				return decimal.Zero, err
			}
			return nrv.Div(nrvProxyDivisor), nil
		}
	}

	return o.GetHistoric(ctx, cgid, date)
}

func (o *Oracle) markMissing(ctx context.Context, cgid, date string) error {
	if err := o.Store.SAdd(ctx, missingSetKey(), priceKey(cgid, date)); err != nil {
		return err
	}
	return o.Store.SAdd(ctx, missingSetKey(), priceUSDAliasKey(cgid, date))
}

func parsePrice(v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("priceoracle: corrupt price value %q: %w", v, err)
	}
	return d, nil
}
