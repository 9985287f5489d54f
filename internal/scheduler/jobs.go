package scheduler

import (
	"context"
	"fmt"
	"time"
)

const defaultLockTTL = 10 * time.Minute

// BridgePass and PoolPass abstract one chain's indexer.Runner methods so
// this package doesn't need to import indexer directly — cmd/indexer
// wires the concrete closures at startup.
type BridgePass func(ctx context.Context) error
type PoolPass func(ctx context.Context) error

// NewUpdateGetLogsJob builds spec.md §4.7's "update_getlogs" job: invoke
// the Indexer's bridge pass for every chain, hourly. Per-chain failures are
// logged and do not prevent other chains from running this tick.
func NewUpdateGetLogsJob(passes map[string]BridgePass) Job {
	return Job{
		Name:     "update_getlogs",
		CronSpec: "0 * * * *",
		LockTTL:  defaultLockTTL,
		Run: func(ctx context.Context) error {
			return runAllChains(ctx, passes)
		},
	}
}

// NewUpdateGetLogsPoolJob builds "update_getlogs_pool": invoke the
// Indexer's pool pass(es) for every chain, hourly.
func NewUpdateGetLogsPoolJob(passes map[string]PoolPass) Job {
	return Job{
		Name:     "update_getlogs_pool",
		CronSpec: "0 * * * *",
		LockTTL:  defaultLockTTL,
		Run: func(ctx context.Context) error {
			return runAllChains(ctx, passes)
		},
	}
}

// NewUpdatePricesJob builds "update_prices": for each known cgid, fetch
// today's price and write if absent. runOnce is supplied by cmd/indexer,
// closing over the PriceOracle/Fetcher and the static cgid roster.
func NewUpdatePricesJob(runOnce func(ctx context.Context) error) Job {
	return Job{
		Name:     "update_prices",
		CronSpec: "10 0 * * *",
		LockTTL:  defaultLockTTL,
		Run:      runOnce,
	}
}

// NewUpdatePricesMissingJob builds "update_prices_missing": drain
// prices:missing hourly.
func NewUpdatePricesMissingJob(refresh func(ctx context.Context) error) Job {
	return Job{
		Name:     "update_prices_missing",
		CronSpec: "0 * * * *",
		LockTTL:  defaultLockTTL,
		Run:      refresh,
	}
}

// NewUpdateCachesJob builds "update_caches": pre-warm the QueryAPI every
// 15 minutes by issuing the canonical read set.
func NewUpdateCachesJob(warm func(ctx context.Context) error) Job {
	return Job{
		Name:     "update_caches",
		CronSpec: "*/15 * * * *",
		LockTTL:  5 * time.Minute,
		Run:      warm,
	}
}

func runAllChains[T ~func(context.Context) error](ctx context.Context, passes map[string]T) error {
	var firstErr error
	for chain, pass := range passes {
		if err := pass(ctx); err != nil {
			wrapped := fmt.Errorf("chain %s: %w", chain, err)
			if firstErr == nil {
				firstErr = wrapped
			}
		}
	}
	return firstErr
}
