package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"fitgate/config"
	"fitgate/internal/domain/entity"
	"fitgate/internal/domain/repository"
	"fitgate/internal/domain/service"

	"github.com/google/uuid"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTokenConfig() *config.Config {
	return &config.Config{
		Token: &config.TokenConfig{
			Secret:        "usecase_test_signing_secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			RenewalWindow: 24 * time.Hour,
			ClockSkew:     5 * time.Second,
		},
	}
}

// memStore is a shared in-memory database backing the fake repositories.
type memStore struct {
	mu          sync.Mutex
	identities  map[string]*entity.Identity
	sessions    map[uuid.UUID]*entity.SessionRecord
	credentials map[string]*entity.FitnessCredential
}

func newMemStore() *memStore {
	return &memStore{
		identities:  make(map[string]*entity.Identity),
		sessions:    make(map[uuid.UUID]*entity.SessionRecord),
		credentials: make(map[string]*entity.FitnessCredential),
	}
}

// memTxManager satisfies TransactionManager without transactional semantics;
// the fakes mutate shared state directly.
type memTxManager struct {
	store *memStore
}

func (tm *memTxManager) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	return fn(&memFactory{store: tm.store})
}

type memFactory struct {
	store *memStore
}

func (f *memFactory) NewIdentityRepository() repository.IdentityRepository {
	return &memIdentityRepo{store: f.store}
}

func (f *memFactory) NewSessionRepository() repository.SessionRepository {
	return &memSessionRepo{store: f.store}
}

func (f *memFactory) NewCredentialRepository() repository.CredentialRepository {
	return &memCredentialRepo{store: f.store}
}

type memIdentityRepo struct {
	store *memStore
}

func (r *memIdentityRepo) FindBySubject(_ context.Context, subject string) (*entity.Identity, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	identity, ok := r.store.identities[subject]
	if !ok {
		return nil, repository.ErrIdentityNotFound
	}
	clone := *identity

	return &clone, nil
}

func (r *memIdentityRepo) FindByEmail(_ context.Context, email string) (*entity.Identity, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, identity := range r.store.identities {
		if identity.Email == email {
			clone := *identity

			return &clone, nil
		}
	}

	return nil, repository.ErrIdentityNotFound
}

func (r *memIdentityRepo) Create(_ context.Context, identity *entity.Identity) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	identity.CreatedAt = time.Now()
	clone := *identity
	r.store.identities[identity.Subject] = &clone

	return nil
}

func (r *memIdentityRepo) SetNeedsReauth(_ context.Context, subject string, needsReauth bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	identity, ok := r.store.identities[subject]
	if !ok {
		return repository.ErrIdentityNotFound
	}
	identity.NeedsReauth = needsReauth

	return nil
}

func (r *memIdentityRepo) List(_ context.Context, includeTest, includeReal bool) ([]*entity.Identity, error) {
	if !includeTest && !includeReal {
		return nil, repository.ErrIdentityNotFound
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*entity.Identity
	for _, identity := range r.store.identities {
		if identity.IsTest() && !includeTest {
			continue
		}
		if !identity.IsTest() && !includeReal {
			continue
		}
		clone := *identity
		out = append(out, &clone)
	}

	return out, nil
}

type memSessionRepo struct {
	store *memStore
}

func (r *memSessionRepo) Create(_ context.Context, record *entity.SessionRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	record.CreatedAt = time.Now()
	clone := *record
	r.store.sessions[record.ID] = &clone

	return nil
}

func (r *memSessionRepo) FindByTokenHash(_ context.Context, tokenHash string) (*entity.SessionRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, record := range r.store.sessions {
		if record.TokenHash == tokenHash {
			if record.ExpiresAt.Before(time.Now()) {
				return nil, repository.ErrSessionExpired
			}
			clone := *record

			return &clone, nil
		}
	}

	return nil, repository.ErrSessionNotFound
}

func (r *memSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.SessionRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	record, ok := r.store.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	if record.ExpiresAt.Before(time.Now()) {
		return nil, repository.ErrSessionExpired
	}
	clone := *record

	return &clone, nil
}

func (r *memSessionRepo) Update(_ context.Context, record *entity.SessionRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.sessions[record.ID]
	if !ok {
		return repository.ErrSessionNotFound
	}
	stored.TokenHash = record.TokenHash
	stored.ExpiresAt = record.ExpiresAt

	return nil
}

func (r *memSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.sessions[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(r.store.sessions, id)

	return nil
}

func (r *memSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for id, record := range r.store.sessions {
		if record.TokenHash == tokenHash {
			delete(r.store.sessions, id)

			return nil
		}
	}

	return repository.ErrSessionNotFound
}

func (r *memSessionRepo) DeleteExpired(_ context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	for id, record := range r.store.sessions {
		if record.ExpiresAt.Before(now) {
			delete(r.store.sessions, id)
		}
	}

	return nil
}

type memCredentialRepo struct {
	store *memStore
}

func (r *memCredentialRepo) FindBySubject(_ context.Context, subject string) (*entity.FitnessCredential, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	credential, ok := r.store.credentials[subject]
	if !ok {
		return nil, repository.ErrCredentialNotFound
	}
	clone := *credential

	return &clone, nil
}

func (r *memCredentialRepo) Upsert(_ context.Context, credential *entity.FitnessCredential) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	clone := *credential
	r.store.credentials[credential.IdentitySubject] = &clone

	return nil
}

func (r *memCredentialRepo) Delete(_ context.Context, subject string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.credentials[subject]; !ok {
		return repository.ErrCredentialNotFound
	}
	delete(r.store.credentials, subject)

	return nil
}

// fakeCodeVerifier returns a canned verification result.
type fakeCodeVerifier struct {
	identity *service.VerifiedIdentity
	err      error
}

func (v *fakeCodeVerifier) VerifyAuthorizationCode(context.Context, string, string) (*service.VerifiedIdentity, error) {
	if v.err != nil {
		return nil, v.err
	}

	return v.identity, nil
}

// fakeFitnessClient counts calls and delegates to a configurable function.
type fakeFitnessClient struct {
	mu      sync.Mutex
	calls   int
	refresh func(ctx context.Context, refreshToken string) (*service.RefreshedToken, error)
}

func (c *fakeFitnessClient) RefreshAccessToken(ctx context.Context, refreshToken string) (*service.RefreshedToken, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	return c.refresh(ctx, refreshToken)
}

func (c *fakeFitnessClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls
}

// fakeQREncoder returns a fixed byte payload.
type fakeQREncoder struct{}

func (fakeQREncoder) EncodePNG(string) ([]byte, error) {
	return []byte("png-bytes"), nil
}
