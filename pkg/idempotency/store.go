// Package idempotency tracks which invoices have already been copied so a
// re-run can skip the ledger lookup for them. Markers are advisory: losing
// one only costs an extra lookup, it never causes a duplicate invoice.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStore scopes markers to one shop so multiple shops can share a redis.
func NewStore(rdb *redis.Client, shopURL string, ttl time.Duration) *Store {
	return &Store{rdb: rdb, prefix: shopURL, ttl: ttl}
}

func (s *Store) key(invoiceNumber string) string {
	return fmt.Sprintf("copied:%s:%s", s.prefix, invoiceNumber)
}

// Seen reports whether the invoice was marked by a previous run. It does not
// set the marker; Mark is called only after the invoice actually exists.
func (s *Store) Seen(ctx context.Context, invoiceNumber string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(invoiceNumber)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Mark(ctx context.Context, invoiceNumber string) error {
	return s.rdb.Set(ctx, s.key(invoiceNumber), "1", s.ttl).Err()
}
