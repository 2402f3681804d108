// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"fitgate/config"
	"fitgate/internal/domain/entity"
	domainerrors "fitgate/internal/domain/errors"
	"fitgate/internal/domain/service"
	"fitgate/internal/errors"
)

const (
	defaultAccessTTL     = 15 * time.Minute
	defaultRefreshTTL    = 7 * 24 * time.Hour
	defaultRenewalWindow = 24 * time.Hour
	defaultClockSkew     = 5 * time.Second
)

// jwtIssuer is a concrete implementation of the TokenIssuer interface using the JWT standard.
// A single HMAC secret signs both token kinds; the 'kind' claim keeps them apart.
type jwtIssuer struct {
	secret        []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	renewalWindow time.Duration
	clockSkew     time.Duration
}

// sessionTokenClaims is the wire shape of our signed tokens.
type sessionTokenClaims struct {
	Email    string `json:"email,omitempty"`
	Provider string `json:"provider,omitempty"`
	Kind     string `json:"kind"`
	jwt.RegisteredClaims
}

// NewJWTIssuer is the constructor for jwtIssuer.
func NewJWTIssuer(cfg *config.Config) (service.TokenIssuer, error) {
	if cfg.Token == nil || cfg.Token.Secret == "" {
		return nil, errors.New("token signing secret must be provided")
	}

	issuer := &jwtIssuer{
		secret:        []byte(cfg.Token.Secret),
		accessTTL:     cfg.Token.AccessTTL,
		refreshTTL:    cfg.Token.RefreshTTL,
		renewalWindow: cfg.Token.RenewalWindow,
		clockSkew:     cfg.Token.ClockSkew,
	}
	if issuer.accessTTL <= 0 {
		issuer.accessTTL = defaultAccessTTL
	}
	if issuer.refreshTTL <= 0 {
		issuer.refreshTTL = defaultRefreshTTL
	}
	if issuer.renewalWindow <= 0 {
		issuer.renewalWindow = defaultRenewalWindow
	}
	if issuer.clockSkew <= 0 {
		issuer.clockSkew = defaultClockSkew
	}

	if issuer.accessTTL >= issuer.refreshTTL {
		return nil, errors.New("access TTL must be shorter than refresh TTL")
	}

	return issuer, nil
}

// Issue mints a fresh access+refresh pair bound to a verified identity.
func (s *jwtIssuer) Issue(identity *entity.Identity) (*entity.Session, error) {
	return s.issueAt(identity.Subject, identity.Email, identity.Provider, uuid.New(), time.Now())
}

func (s *jwtIssuer) issueAt(subject, email string, provider entity.Provider, sessionID uuid.UUID, now time.Time) (*entity.Session, error) {
	accessExpiry := now.Add(s.accessTTL)
	refreshExpiry := now.Add(s.refreshTTL)

	accessToken, err := s.sign(subject, email, provider, service.TokenKindAccess, sessionID, now, accessExpiry)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign access token")
	}

	refreshToken, err := s.sign(subject, email, provider, service.TokenKindRefresh, sessionID, now, refreshExpiry)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign refresh token")
	}

	return &entity.Session{
		ID:               sessionID,
		IdentitySubject:  subject,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
		IssuedAt:         now,
	}, nil
}

// ValidateAccess verifies an access token and returns its claims.
func (s *jwtIssuer) ValidateAccess(token string) (*service.SessionClaims, error) {
	return s.validate(token, service.TokenKindAccess)
}

// ValidateRefresh verifies a refresh token and returns its claims.
func (s *jwtIssuer) ValidateRefresh(token string) (*service.SessionClaims, error) {
	return s.validate(token, service.TokenKindRefresh)
}

// RefreshAccess mints a new access token against a valid refresh token.
// Outside the renewal window the refresh token is handed back unchanged; the
// pair only rotates when its own expiry is near.
func (s *jwtIssuer) RefreshAccess(refreshToken string) (*entity.Session, bool, error) {
	claims, err := s.validate(refreshToken, service.TokenKindRefresh)
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return nil, false, domainerrors.ErrInvalidSignature.WrapMessage("malformed session id claim")
	}

	if claims.ExpiresAt.Sub(now) <= s.renewalWindow {
		// The refresh token is about to die anyway, reissue the whole pair.
		session, err := s.issueAt(claims.Subject, claims.Email, claims.Provider, sessionID, now)
		if err != nil {
			return nil, false, err
		}

		return session, true, nil
	}

	accessExpiry := now.Add(s.accessTTL)
	accessToken, err := s.sign(claims.Subject, claims.Email, claims.Provider, service.TokenKindAccess, sessionID, now, accessExpiry)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to sign access token")
	}

	return &entity.Session{
		ID:               sessionID,
		IdentitySubject:  claims.Subject,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: claims.ExpiresAt,
		IssuedAt:         now,
	}, false, nil
}

// HashToken returns the SHA-256 hex digest under which a raw refresh token is
// persisted. The plain token never touches the database.
func (s *jwtIssuer) HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))

	return hex.EncodeToString(sum[:])
}

// RefreshTokenTTL returns the configured refresh token lifetime.
func (s *jwtIssuer) RefreshTokenTTL() time.Duration {
	return s.refreshTTL
}

func (s *jwtIssuer) sign(subject, email string, provider entity.Provider, kind service.TokenKind, sessionID uuid.UUID, issuedAt, expiresAt time.Time) (string, error) {
	claims := sessionTokenClaims{
		Email:    email,
		Provider: provider.String(),
		Kind:     string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        sessionID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(s.secret)
}

// validate checks the signature before trusting any claim, applies the clock
// skew leeway to expiry, and rejects tokens of the wrong kind.
func (s *jwtIssuer) validate(tokenString string, wantKind service.TokenKind) (*service.SessionClaims, error) {
	claims := &sessionTokenClaims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.clockSkew),
	)

	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainerrors.ErrTokenExpired.WrapMessage("token past its expiry")
		}

		return nil, domainerrors.ErrInvalidSignature.WrapMessage(err.Error())
	}

	if claims.Kind != string(wantKind) {
		return nil, domainerrors.ErrWrongTokenKind.WrapMessage("unexpected token kind " + claims.Kind)
	}

	out := &service.SessionClaims{
		Subject:   claims.Subject,
		Email:     claims.Email,
		Provider:  entity.Provider(claims.Provider),
		Kind:      service.TokenKind(claims.Kind),
		SessionID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}

	return out, nil
}
