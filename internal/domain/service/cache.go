package service

import (
	"context"
	"time"

	"fitgate/internal/domain/entity"

	"github.com/pkg/errors"
)

// Sentinel errors for the ticket store.
var (
	// ErrTicketNotFound means no ticket exists under the id (never issued, or
	// already reaped by the cache TTL).
	ErrTicketNotFound = errors.New("handoff ticket not found")
	// ErrTicketConsumed means the ticket was already redeemed.
	ErrTicketConsumed = errors.New("handoff ticket already consumed")
	// ErrTicketExpired means the ticket is past its expiry but not yet reaped.
	ErrTicketExpired = errors.New("handoff ticket expired")
)

// LeaseStore provides try-acquire mutual exclusion keyed by identity, backed
// by a cache with native per-key expiry. The TTL is the only cleanup
// mechanism: a crashed holder's lease simply times out.
type LeaseStore interface {
	// Acquire attempts to take the lease without blocking. Returns false when
	// another holder already owns it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees the lease early. Releasing an expired or foreign lease is
	// a no-op.
	Release(ctx context.Context, key string) error
}

// TicketStore keeps handoff tickets for their bounded lifetime. Consume must
// be atomic check-and-mark: under concurrent redemption exactly one caller
// receives the ticket, all others get ErrTicketConsumed.
type TicketStore interface {
	// Put stores a new ticket until shortly after its expiry, so that late
	// redemption attempts can still be answered with a precise error.
	Put(ctx context.Context, ticket *entity.HandoffTicket) error

	// Consume atomically marks the ticket consumed and returns it. Fails with
	// ErrTicketNotFound, ErrTicketConsumed or ErrTicketExpired.
	Consume(ctx context.Context, id string) (*entity.HandoffTicket, error)
}
