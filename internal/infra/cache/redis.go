// Package cache provides the lease and handoff ticket stores on Redis, with
// in-memory equivalents for tests.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"fitgate/config"
	"fitgate/internal/domain/entity"
	"fitgate/internal/domain/service"
)

const (
	leaseKeyPrefix  = "lease:"
	ticketKeyPrefix = "ticket:"
)

// Tickets outlive their expiry in the cache so that a late redemption attempt
// gets a precise "expired" answer instead of "not found".
const ticketRetentionFactor = 2

// NewRedisClient connects to the configured Redis instance and verifies the
// connection before handing it out.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.Redis == nil {
		return nil, errors.New("redis configuration is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to ping redis")
	}

	return client, nil
}

// redisLeaseStore implements try-acquire mutual exclusion with SET NX EX.
type redisLeaseStore struct {
	client *redis.Client
}

// NewRedisLeaseStore is the constructor for redisLeaseStore.
func NewRedisLeaseStore(client *redis.Client) service.LeaseStore {
	return &redisLeaseStore{client: client}
}

// Acquire attempts to take the lease without blocking.
func (s *redisLeaseStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, leaseKeyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "failed to acquire lease")
	}

	return ok, nil
}

// Release frees the lease early.
func (s *redisLeaseStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, leaseKeyPrefix+key).Err(); err != nil {
		return errors.Wrap(err, "failed to release lease")
	}

	return nil
}

// redisTicketStore keeps handoff tickets as JSON values with a native TTL.
type redisTicketStore struct {
	client *redis.Client
}

// cachedTicket is the Redis wire shape. Expiry is kept as epoch milliseconds
// so the consume script can compare it without date parsing.
type cachedTicket struct {
	ID              string `json:"id"`
	IdentitySubject string `json:"identitySubject"`
	SessionID       string `json:"sessionId"`
	ExpiresAtMs     int64  `json:"expiresAtMs"`
	Consumed        bool   `json:"consumed"`
}

func (c *cachedTicket) toEntity() (*entity.HandoffTicket, error) {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "malformed ticket id")
	}

	sessionID, err := uuid.Parse(c.SessionID)
	if err != nil {
		return nil, errors.Wrap(err, "malformed session id")
	}

	return &entity.HandoffTicket{
		ID:              id,
		IdentitySubject: c.IdentitySubject,
		SessionID:       sessionID,
		ExpiresAt:       time.UnixMilli(c.ExpiresAtMs),
		Consumed:        c.Consumed,
	}, nil
}

// NewRedisTicketStore is the constructor for redisTicketStore.
func NewRedisTicketStore(client *redis.Client) service.TicketStore {
	return &redisTicketStore{client: client}
}

// Put stores a new ticket until shortly after its expiry.
func (s *redisTicketStore) Put(ctx context.Context, ticket *entity.HandoffTicket) error {
	payload, err := json.Marshal(&cachedTicket{
		ID:              ticket.ID.String(),
		IdentitySubject: ticket.IdentitySubject,
		SessionID:       ticket.SessionID.String(),
		ExpiresAtMs:     ticket.ExpiresAt.UnixMilli(),
		Consumed:        ticket.Consumed,
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode ticket")
	}

	retention := ticketRetentionFactor * time.Until(ticket.ExpiresAt)
	if retention <= 0 {
		return errors.New("ticket is already expired")
	}

	key := ticketKeyPrefix + ticket.ID.String()
	if err := s.client.Set(ctx, key, payload, retention).Err(); err != nil {
		return errors.Wrap(err, "failed to store ticket")
	}

	return nil
}

// consumeScript atomically marks a ticket consumed. Doing the check and the
// rewrite inside one script is what keeps double redemption out even when two
// devices scan the same code at once.
//
// Returns the stored payload on success, "CONSUMED" when the flag is already
// set, "EXPIRED" when the ticket is past its expiry, and false when no key
// exists. KEYS[1] is the ticket key, ARGV[1] the current Unix time in
// milliseconds.
var consumeScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then
    return false
end
local ticket = cjson.decode(raw)
if ticket.consumed then
    return "CONSUMED"
end
if ticket.expiresAtMs <= tonumber(ARGV[1]) then
    return "EXPIRED"
end
ticket.consumed = true
local ttl = redis.call("PTTL", KEYS[1])
if ttl > 0 then
    redis.call("SET", KEYS[1], cjson.encode(ticket), "PX", ttl)
end
return raw
`)

// Consume atomically marks the ticket consumed and returns it.
func (s *redisTicketStore) Consume(ctx context.Context, id string) (*entity.HandoffTicket, error) {
	now := time.Now().UnixMilli()

	result, err := consumeScript.Run(ctx, s.client, []string{ticketKeyPrefix + id}, now).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, service.ErrTicketNotFound
		}

		return nil, errors.Wrap(err, "failed to consume ticket")
	}

	raw, ok := result.(string)
	if !ok {
		return nil, errors.New("unexpected consume script result")
	}

	switch raw {
	case "CONSUMED":
		return nil, service.ErrTicketConsumed
	case "EXPIRED":
		return nil, service.ErrTicketExpired
	}

	cached := &cachedTicket{}
	if err := json.Unmarshal([]byte(raw), cached); err != nil {
		return nil, errors.Wrap(err, "failed to decode ticket")
	}

	return cached.toEntity()
}
