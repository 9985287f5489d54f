package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Lock acquires (or reclaims an expired) named lock for id, valid for ttl,
// following the teacher's AcquireLease/ReclaimLease insert-then-update
// pattern in postgres_leasing.go, generalized from per-(worker,height)
// leases to the single named job locks spec.md §4.2/§4.6 describes.
//
// Returns ErrLockHeld if another holder's lease has not yet expired.
func (s *Store) Lock(ctx context.Context, name, id string, ttl time.Duration) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO kv.locks (name, holder_id, expires_at)
		VALUES ($1, $2, NOW() + $3 * INTERVAL '1 second')
		ON CONFLICT (name) DO NOTHING`,
		name, id, ttl.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("store: lock %q: %w", name, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Row already existed — reclaim only if its lease has expired.
	reclaimed, err := s.db.Exec(ctx, `
		UPDATE kv.locks
		SET holder_id = $2, expires_at = NOW() + $3 * INTERVAL '1 second'
		WHERE name = $1 AND expires_at < NOW()`,
		name, id, ttl.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("store: reclaim lock %q: %w", name, err)
	}
	if reclaimed.RowsAffected() == 0 {
		return ErrLockHeld
	}
	return nil
}

// Unlock releases a lock only if id is the current holder. Per spec.md
// §4.2, double-release or release-after-expiry is not required to
// succeed silently — it returns ErrNotOwner so callers can distinguish
// "I never held this" from a real failure.
func (s *Store) Unlock(ctx context.Context, name, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM kv.locks WHERE name = $1 AND holder_id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("store: unlock %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotOwner
	}
	return nil
}

// Holder returns the current holder id of a lock, or ("", false, nil) if
// unlocked or expired.
func (s *Store) Holder(ctx context.Context, name string) (string, bool, error) {
	var holder string
	err := s.db.QueryRow(ctx, `SELECT holder_id FROM kv.locks WHERE name = $1 AND expires_at >= NOW()`, name).Scan(&holder)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: holder %q: %w", name, err)
	}
	return holder, true, nil
}
