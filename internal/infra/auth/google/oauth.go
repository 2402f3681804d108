// Package google implements identity verification and Fitness token refresh
// against Google's OAuth2 token endpoint.
package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fitgate/config"
	"fitgate/internal/domain/entity"
	domainerrors "fitgate/internal/domain/errors"
	"fitgate/internal/domain/service"

	"github.com/pkg/errors"
)

const googleTokenURL = "https://oauth2.googleapis.com/token"

const defaultRequestTimeout = 10 * time.Second

// OAuthClient exchanges authorization codes and refreshes Fitness access
// tokens. Both operations hit the same token endpoint with the same client
// credentials, so one client serves both contracts.
type OAuthClient struct {
	clientID     string
	clientSecret string
	redirectURI  string
	tokenURL     string
	httpClient   *http.Client
	logger       *slog.Logger
}

// tokenResponse is Google's token endpoint success body. The id_token is only
// present on the authorization code grant.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// tokenErrorResponse is Google's token endpoint error body.
type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// idTokenClaims is the payload of a Google ID token.
type idTokenClaims struct {
	Iss           string `json:"iss"`
	Sub           string `json:"sub"`
	Aud           string `json:"aud"`
	Exp           int64  `json:"exp"`
	Iat           int64  `json:"iat"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// NewOAuthClient creates a client bound to the configured OAuth2 application.
func NewOAuthClient(cfg *config.Config, logger *slog.Logger) *OAuthClient {
	timeout := defaultRequestTimeout
	if cfg.GoogleOAuth != nil && cfg.GoogleOAuth.RequestTimeout > 0 {
		timeout = cfg.GoogleOAuth.RequestTimeout
	}

	client := &OAuthClient{
		tokenURL:   googleTokenURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	if cfg.GoogleOAuth != nil {
		client.clientID = cfg.GoogleOAuth.ClientID
		client.clientSecret = cfg.GoogleOAuth.ClientSecret
		client.redirectURI = cfg.GoogleOAuth.RedirectURI
	}

	return client
}

// NewCodeVerifier exposes the client under its code verification contract.
func NewCodeVerifier(client *OAuthClient) service.CodeVerifier {
	return client
}

// NewFitnessTokenClient exposes the client under its token refresh contract.
func NewFitnessTokenClient(client *OAuthClient) service.FitnessTokenClient {
	return client
}

// VerifyAuthorizationCode exchanges the code at the token endpoint and
// validates the returned ID token.
func (c *OAuthClient) VerifyAuthorizationCode(ctx context.Context, code, redirectURI string) (*service.VerifiedIdentity, error) {
	if redirectURI == "" {
		redirectURI = c.redirectURI
	}

	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", redirectURI)

	body, err := c.postToken(ctx, data)
	if err != nil {
		return nil, err
	}

	claims, err := parseIDToken(body.IDToken)
	if err != nil {
		c.logger.Error("Failed to parse Google ID token", slog.Any("error", err))

		return nil, domainerrors.ErrInvalidGrant.WrapMessage(err.Error())
	}

	if err := c.verifyIDTokenClaims(claims); err != nil {
		c.logger.Error("Google ID token verification failed", slog.Any("error", err))

		return nil, domainerrors.ErrInvalidGrant.WrapMessage(err.Error())
	}

	identity := &service.VerifiedIdentity{
		Subject:       claims.Sub,
		Email:         claims.Email,
		Name:          claims.Name,
		Picture:       claims.Picture,
		Provider:      entity.ProviderGoogle,
		EmailVerified: claims.EmailVerified,
	}

	// The code grant also carries the Fitness token pair when the consent
	// screen included Fitness scopes. A missing refresh token on repeat
	// consents is normal, the caller keeps the stored one.
	if body.AccessToken != "" {
		identity.Grant = &service.FitnessGrant{
			AccessToken:  body.AccessToken,
			RefreshToken: body.RefreshToken,
			ExpiresAt:    time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
		}
	}

	c.logger.Info("Google authorization code verified",
		slog.String("subject", identity.Subject),
		slog.String("email", identity.Email))

	return identity, nil
}

// RefreshAccessToken exchanges a stored refresh token for a new access token.
func (c *OAuthClient) RefreshAccessToken(ctx context.Context, refreshToken string) (*service.RefreshedToken, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("refresh_token", refreshToken)
	data.Set("grant_type", "refresh_token")

	body, err := c.postToken(ctx, data)
	if err != nil {
		var appErr domainerrors.AppError
		if errors.As(err, &appErr) {
			switch appErr.ErrorCode() {
			case domainerrors.ErrInvalidGrant.ErrorCode():
				return nil, service.ErrGrantRevoked
			case domainerrors.ErrProviderUnavailable.ErrorCode():
				return nil, service.ErrProviderUnreachable
			}
		}

		return nil, err
	}

	return &service.RefreshedToken{
		AccessToken: body.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}

// postToken performs one form POST against the token endpoint and maps the
// outcome onto the error taxonomy: invalid_grant for rejected grants, provider
// unavailable for transport failures and 5xx responses.
func (c *OAuthClient) postToken(ctx context.Context, data url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create token request")
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Google token endpoint unreachable", slog.Any("error", err))

		return nil, domainerrors.ErrProviderUnavailable.WrapMessage(err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domainerrors.ErrProviderUnavailable.WrapMessage(err.Error())
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Error("Google token endpoint error",
			slog.Int("status", resp.StatusCode))

		return nil, domainerrors.ErrProviderUnavailable.WrapMessage(
			"token endpoint returned status " + resp.Status)
	}

	if resp.StatusCode != http.StatusOK {
		var errBody tokenErrorResponse
		_ = json.Unmarshal(raw, &errBody)
		c.logger.Warn("Google rejected the grant",
			slog.Int("status", resp.StatusCode),
			slog.String("error", errBody.Error),
			slog.String("description", errBody.ErrorDescription))

		return nil, domainerrors.ErrInvalidGrant.WrapMessage(errBody.Error)
	}

	var body tokenResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, domainerrors.ErrProviderUnavailable.WrapMessage("malformed token response")
	}

	return &body, nil
}

// verifyIDTokenClaims checks issuer, audience, expiry and email verification.
// The signature is not re-verified: the token arrives over the direct TLS
// exchange with Google, not from the client.
func (c *OAuthClient) verifyIDTokenClaims(claims *idTokenClaims) error {
	if claims.Iss != "https://accounts.google.com" && claims.Iss != "accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", claims.Iss)
	}

	if claims.Aud != c.clientID {
		return errors.Errorf("invalid audience: expected %s, got %s", c.clientID, claims.Aud)
	}

	if claims.Exp < time.Now().Unix() {
		return errors.New("id token expired")
	}

	if !claims.EmailVerified {
		return errors.New("email not verified")
	}

	return nil
}

// parseIDToken extracts the claims from the ID token payload.
func parseIDToken(token string) (*idTokenClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errors.New("invalid JWT format")
	}

	decoded, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode token payload")
	}

	var claims idTokenClaims
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return nil, errors.Wrap(err, "failed to parse token claims")
	}

	return &claims, nil
}
