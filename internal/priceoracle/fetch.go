package priceoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Fetcher calls the external price source. Coingecko's history endpoint is
// keyed by cgid and a DD-MM-YYYY date, matching the teacher's single-asset
// FetchFlowPrice pattern in market/price.go, generalized to arbitrary cgids
// and historical dates instead of one hardcoded "flow" spot lookup.
type Fetcher struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	BaseURL    string // defaults to https://api.coingecko.com/api/v3 if empty
}

func NewFetcher(limiter *rate.Limiter) *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Limiter:    limiter,
		BaseURL:    "https://api.coingecko.com/api/v3",
	}
}

type historyResponse struct {
	MarketData struct {
		CurrentPrice map[string]float64 `json:"current_price"`
	} `json:"market_data"`
}

// FetchHistoric fetches cgid's USD price on date ("2006-01-02"), honoring
// the fetcher's rate limiter before every call.
func (f *Fetcher) FetchHistoric(ctx context.Context, cgid, date string) (decimal.Decimal, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return decimal.Zero, fmt.Errorf("priceoracle: rate limiter: %w", err)
		}
	}

	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return decimal.Zero, fmt.Errorf("priceoracle: bad date %q: %w", date, err)
	}
	coingeckoDate := d.Format("02-01-2006")

	url := fmt.Sprintf("%s/coins/%s/history?date=%s&localization=false", f.BaseURL, cgid, coingeckoDate)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("User-Agent", "bridge-analytics/1.0")

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("priceoracle: fetch %s/%s: %w", cgid, date, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decimal.Zero, fmt.Errorf("priceoracle: coingecko status %s for %s/%s", resp.Status, cgid, date)
	}

	var body historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("priceoracle: decode response for %s/%s: %w", cgid, date, err)
	}

	usd, ok := body.MarketData.CurrentPrice["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("priceoracle: no usd price in response for %s/%s", cgid, date)
	}
	return decimal.NewFromFloat(usd), nil
}

// RefreshMissingPrices drains the prices:missing set and fetches each
// entry, writing both the bare key and its ":usd" alias — per spec.md
// §4.6's contract that the alias is satisfied by pointing at the same
// value. Entries are only removed from the missing set once successfully
// fetched; a failed fetch leaves its entry for the next tick.
func (o *Oracle) RefreshMissingPrices(ctx context.Context, fetcher *Fetcher) (filled int, failed int, err error) {
	members, err := o.Store.SMembers(ctx, missingSetKey())
	if err != nil {
		return 0, 0, err
	}

	for _, key := range members {
		if strings.HasSuffix(key, ":usd") {
			// The bare key drives the fetch; its alias entry is removed
			// alongside it once the bare key resolves (see below).
			continue
		}
		cgid, date, ok := splitPriceKey(key)
		if !ok {
			continue
		}

		price, ferr := fetcher.FetchHistoric(ctx, cgid, date)
		if ferr != nil {
			failed++
			continue
		}

		if err := o.Store.Set(ctx, priceKey(cgid, date), price.String()); err != nil {
			return filled, failed, err
		}
		if err := o.Store.Set(ctx, priceUSDAliasKey(cgid, date), price.String()); err != nil {
			return filled, failed, err
		}
		if err := o.Store.SRem(ctx, missingSetKey(), key); err != nil {
			return filled, failed, err
		}
		if err := o.Store.SRem(ctx, missingSetKey(), priceUSDAliasKey(cgid, date)); err != nil {
			return filled, failed, err
		}
		filled++
	}

	return filled, failed, nil
}

func splitPriceKey(key string) (cgid, date string, ok bool) {
	idx := strings.LastIndex(key, ":")
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], key[idx+1:], true
}
