// Package scheduler runs spec.md §4.7's named periodic jobs
// (update_getlogs, update_getlogs_pool, update_prices,
// update_prices_missing, update_caches), each holding at most one
// concurrent runner across all worker processes via a Store-backed named
// lock. Job cadence itself follows the teacher's ticker-driven
// NetworkPoller (internal/ingester/network_poller.go); the single-holder
// locking is new — robfig/cron/v3 supplies the cron-expression scheduling
// spec.md's job table describes in place of the teacher's fixed interval
// ticker, since "daily at 00:10 UTC" isn't expressible as a plain
// time.Ticker.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// KVStore is the slice of store.Store the Scheduler needs for leader
// election.
type KVStore interface {
	Lock(ctx context.Context, name, id string, ttl time.Duration) error
	Unlock(ctx context.Context, name, id string) error
}

// Job is one named periodic task. Spec omits max_instances's cron syntax
// (it assumes a scheduler that enforces "at most one concurrent runner"
// directly) — here that guarantee comes entirely from the Store lock, not
// from cron itself, so two processes both running this Scheduler never
// double-run a job even if their clocks briefly disagree.
type Job struct {
	Name     string
	CronSpec string
	LockTTL  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler wraps a cron.Cron instance, wrapping every registered Job in
// the Store-backed lock-acquire/deferred-release pattern spec.md §4.7
// requires.
type Scheduler struct {
	Store    KVStore
	HolderID string
	cron     *cron.Cron
}

// New constructs a Scheduler. holderID should be stable for the lifetime
// of one worker process and unique across the fleet — google/uuid.New()
// is the default the teacher's worker-identity convention reaches for
// (see postgres_leasing.go's leased_by column).
func New(store KVStore, holderID string) *Scheduler {
	if holderID == "" {
		holderID = uuid.NewString()
	}
	return &Scheduler{
		Store:    store,
		HolderID: holderID,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Register wires a Job into the underlying cron schedule. Per spec.md
// §4.7: "If acquisition fails (another worker holds it), the job skips
// this tick" — a contended lock is logged, not retried within the tick.
func (s *Scheduler) Register(job Job) error {
	_, err := s.cron.AddFunc(job.CronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), job.LockTTL)
		defer cancel()
		s.runLocked(ctx, job)
	})
	if err != nil {
		return fmt.Errorf("scheduler: register %s: %w", job.Name, err)
	}
	return nil
}

func (s *Scheduler) runLocked(ctx context.Context, job Job) {
	if err := s.Store.Lock(ctx, job.Name, s.HolderID, job.LockTTL); err != nil {
		log.Printf("[scheduler] %s: skipped this tick (%v)", job.Name, err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[scheduler] %s: panic recovered: %v", job.Name, r)
		}
		if err := s.Store.Unlock(ctx, job.Name, s.HolderID); err != nil {
			log.Printf("[scheduler] %s: unlock failed: %v", job.Name, err)
		}
	}()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		log.Printf("[scheduler] %s: run failed after %s: %v", job.Name, time.Since(start), err)
		return
	}
	log.Printf("[scheduler] %s: completed in %s", job.Name, time.Since(start))
}

// Start begins running every registered job on its schedule. It returns
// immediately; call Stop to halt.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler and waits for any in-flight job to finish.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }
