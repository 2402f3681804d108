package handler

import (
	"net/http"
	"strconv"

	"fitgate/internal/delivery/http/response"
	"fitgate/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// InternalHandler holds dependencies for the operator-facing directory
// endpoints. These routes never sit on the public surface.
type InternalHandler struct {
	uc usecase.DirectoryUsecase
}

// NewInternalHandler is the constructor for InternalHandler, injected by Fx.
func NewInternalHandler(uc usecase.DirectoryUsecase) *InternalHandler {
	return &InternalHandler{uc: uc}
}

// ListUsers returns all known identities, filtered by provenance through the
// include_test and include_real query parameters. Both default to true.
func (h *InternalHandler) ListUsers(c echo.Context) error {
	filter := usecase.DirectoryFilter{
		IncludeTest: boolQueryParam(c, "include_test", true),
		IncludeReal: boolQueryParam(c, "include_real", true),
	}

	identities, err := h.uc.ListUsers(c.Request().Context(), filter)
	if err != nil {
		return errors.WithStack(err)
	}

	users := make([]*identityResponse, 0, len(identities))
	for _, identity := range identities {
		users = append(users, newIdentityResponse(identity))
	}

	return response.Success(c, http.StatusOK, users)
}

// IssueToken mints a session pair for the identity with the given email,
// bypassing any credential check. Operator tooling only.
func (h *InternalHandler) IssueToken(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return response.BadRequest(c, "VALIDATION_FAILED", "email query parameter is required")
	}

	output, err := h.uc.IssueTokenByEmail(c.Request().Context(), email)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newSessionResponse(output))
}

// FitnessToken returns a guaranteed-fresh Fitness access token for the
// identity with the given email.
func (h *InternalHandler) FitnessToken(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return response.BadRequest(c, "VALIDATION_FAILED", "email query parameter is required")
	}

	output, err := h.uc.FreshFitnessTokenByEmail(c.Request().Context(), email)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newFitnessTokenResponse(output))
}

// boolQueryParam parses a boolean query parameter, falling back to the given
// default when absent or malformed.
func boolQueryParam(c echo.Context, name string, fallback bool) bool {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return value
}
