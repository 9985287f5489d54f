package store

import (
	"context"
	"fmt"
)

// SAdd adds member to the set at key (spec.md §4.2's "prices:missing" set
// is built from this). Idempotent: re-adding an existing member is a
// no-op.
func (s *Store) SAdd(ctx context.Context, key, member string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO kv.set_members (set_key, member)
		VALUES ($1, $2)
		ON CONFLICT (set_key, member) DO NOTHING`,
		key, member,
	)
	if err != nil {
		return fmt.Errorf("store: sadd %q/%q: %w", key, member, err)
	}
	return nil
}

// SRem removes member from the set at key. Removing a non-member is a
// no-op.
func (s *Store) SRem(ctx context.Context, key, member string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM kv.set_members WHERE set_key = $1 AND member = $2`, key, member)
	if err != nil {
		return fmt.Errorf("store: srem %q/%q: %w", key, member, err)
	}
	return nil
}

// SMembers returns every member of the set at key, in no particular
// order.
func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT member FROM kv.set_members WHERE set_key = $1`, key)
	if err != nil {
		return nil, fmt.Errorf("store: smembers %q: %w", key, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("store: smembers scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
