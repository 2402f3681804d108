package handler

import (
	"net/http"
	"time"

	"fitgate/internal/delivery/http/middleware"
	"fitgate/internal/delivery/http/response"
	"fitgate/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// fitnessTokenResponse is the wire form of a guaranteed-fresh Fitness token.
type fitnessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
	Refreshed   bool   `json:"refreshed"`
}

func newFitnessTokenResponse(out *usecase.FitnessTokenOutput) *fitnessTokenResponse {
	return &fitnessTokenResponse{
		AccessToken: out.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   out.ExpiresAt.UTC().Format(time.RFC3339),
		Refreshed:   out.Refreshed,
	}
}

// FitnessHandler holds dependencies for Fitness credential handlers.
type FitnessHandler struct {
	uc usecase.CredentialUsecase
}

// NewFitnessHandler is the constructor for FitnessHandler, injected by Fx.
func NewFitnessHandler(uc usecase.CredentialUsecase) *FitnessHandler {
	return &FitnessHandler{uc: uc}
}

// GetToken returns a Fitness access token for the caller, refreshing it
// against Google first when the stored one is stale.
func (h *FitnessHandler) GetToken(c echo.Context) error {
	claims, ok := middleware.GetSessionClaims(c)
	if !ok {
		return response.Unauthorized(c, "TOKEN_MISSING", "Missing session claims")
	}

	output, err := h.uc.EnsureFreshToken(c.Request().Context(), claims.Subject)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newFitnessTokenResponse(output))
}

// RevokeCredential drops the caller's stored Fitness credential and flags the
// identity for re-authentication.
func (h *FitnessHandler) RevokeCredential(c echo.Context) error {
	claims, ok := middleware.GetSessionClaims(c)
	if !ok {
		return response.Unauthorized(c, "TOKEN_MISSING", "Missing session claims")
	}

	if err := h.uc.RevokeCredential(c.Request().Context(), claims.Subject); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Credential revoked"})
}
