package cache

import (
	"context"
	"sync"
	"time"

	"fitgate/internal/domain/entity"
	"fitgate/internal/domain/service"
)

// memoryLeaseStore implements LeaseStore on a local map. It serves tests and
// single-instance deployments that run without Redis.
type memoryLeaseStore struct {
	mu     sync.Mutex
	leases map[string]time.Time
}

// NewMemoryLeaseStore is the constructor for memoryLeaseStore.
func NewMemoryLeaseStore() service.LeaseStore {
	return &memoryLeaseStore{leases: make(map[string]time.Time)}
}

// Acquire attempts to take the lease without blocking.
func (s *memoryLeaseStore) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiry, held := s.leases[key]; held && expiry.After(now) {
		return false, nil
	}

	s.leases[key] = now.Add(ttl)

	return true, nil
}

// Release frees the lease early.
func (s *memoryLeaseStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.leases, key)

	return nil
}

// memoryTicketStore implements TicketStore on a local map with the same
// semantics as the Redis store, including retention past expiry.
type memoryTicketStore struct {
	mu      sync.Mutex
	tickets map[string]*memoryTicket
}

type memoryTicket struct {
	ticket    entity.HandoffTicket
	retention time.Time
}

// NewMemoryTicketStore is the constructor for memoryTicketStore.
func NewMemoryTicketStore() service.TicketStore {
	return &memoryTicketStore{tickets: make(map[string]*memoryTicket)}
}

// Put stores a new ticket until shortly after its expiry.
func (s *memoryTicketStore) Put(_ context.Context, ticket *entity.HandoffTicket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	retention := ticketRetentionFactor * time.Until(ticket.ExpiresAt)
	s.tickets[ticket.ID.String()] = &memoryTicket{
		ticket:    *ticket,
		retention: time.Now().Add(retention),
	}

	return nil
}

// Consume atomically marks the ticket consumed and returns it.
func (s *memoryTicketStore) Consume(_ context.Context, id string) (*entity.HandoffTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	stored, ok := s.tickets[id]
	if !ok || now.After(stored.retention) {
		delete(s.tickets, id)

		return nil, service.ErrTicketNotFound
	}

	if stored.ticket.Consumed {
		return nil, service.ErrTicketConsumed
	}

	if stored.ticket.Expired(now) {
		return nil, service.ErrTicketExpired
	}

	stored.ticket.Consumed = true
	out := stored.ticket

	return &out, nil
}
