// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"

	"fitgate/internal/delivery/http/response"
	"fitgate/internal/domain/entity"
	"fitgate/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// sessionResponse is the wire form of an issued token pair.
type sessionResponse struct {
	AccessToken      string            `json:"access_token"`
	RefreshToken     string            `json:"refresh_token"`
	TokenType        string            `json:"token_type"`
	AccessExpiresAt  int64             `json:"access_expires_at"`
	RefreshExpiresAt int64             `json:"refresh_expires_at"`
	User             *identityResponse `json:"user,omitempty"`
}

// identityResponse is the wire form of a verified identity.
type identityResponse struct {
	Subject     string `json:"subject"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Picture     string `json:"picture,omitempty"`
	Provider    string `json:"provider"`
	NeedsReauth bool   `json:"needs_reauth"`
}

func newSessionResponse(out *usecase.SessionOutput) *sessionResponse {
	return &sessionResponse{
		AccessToken:      out.AccessToken,
		RefreshToken:     out.RefreshToken,
		TokenType:        "Bearer",
		AccessExpiresAt:  out.AccessExpiresAt,
		RefreshExpiresAt: out.RefreshExpiresAt,
		User:             newIdentityResponse(out.Identity),
	}
}

func newIdentityResponse(identity *entity.Identity) *identityResponse {
	if identity == nil {
		return nil
	}

	return &identityResponse{
		Subject:     identity.Subject,
		Email:       identity.Email,
		Name:        identity.Name,
		Picture:     identity.Picture,
		Provider:    identity.Provider.String(),
		NeedsReauth: identity.NeedsReauth,
	}
}

// GoogleLoginRequest carries the authorization code from the mobile client.
type GoogleLoginRequest struct {
	Code        string `json:"code" validate:"required"`
	RedirectURI string `json:"redirect_uri"`
}

// TestLoginRequest carries a preconfigured test credential.
type TestLoginRequest struct {
	Token string `json:"token" validate:"required"`
}

// RefreshRequest carries the refresh token to renew a session with.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest carries the refresh token of the session to revoke.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthHandler holds dependencies for authentication handlers.
type AuthHandler struct {
	uc     usecase.AuthUsecase
	logger *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(uc usecase.AuthUsecase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		uc:     uc,
		logger: logger,
	}
}

// GoogleLogin exchanges a Google authorization code for a session pair.
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req GoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid Google login input")
	}

	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.LoginWithGoogle(c.Request().Context(), usecase.GoogleLoginInput{
		Code:        req.Code,
		RedirectURI: req.RedirectURI,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newSessionResponse(output))
}

// TestLogin exchanges a test-account credential for a session pair.
func (h *AuthHandler) TestLogin(c echo.Context) error {
	var req TestLoginRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid test login input")
	}

	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.LoginWithTestAccount(c.Request().Context(), usecase.TestLoginInput{
		Token: req.Token,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newSessionResponse(output))
}

// Refresh renews an access token against a valid refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid refresh input")
	}

	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.Refresh(c.Request().Context(), usecase.RefreshInput{
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newSessionResponse(output))
}

// Logout revokes the session behind the supplied refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid logout input")
	}

	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	if err := h.uc.Logout(c.Request().Context(), usecase.LogoutInput{
		RefreshToken: req.RefreshToken,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}
