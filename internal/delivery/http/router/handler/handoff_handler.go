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

// handoffTicketResponse is the wire form of a freshly minted handoff ticket.
type handoffTicketResponse struct {
	TicketID  string `json:"ticket_id"`
	RedeemURL string `json:"redeem_url"`
	ExpiresAt string `json:"expires_at"`
}

// RedeemRequest carries the ticket a second device wants to trade for its own
// session.
type RedeemRequest struct {
	TicketID string `json:"ticket_id" validate:"required,uuid"`
}

// HandoffHandler holds dependencies for session handoff handlers.
type HandoffHandler struct {
	uc usecase.HandoffUsecase
}

// NewHandoffHandler is the constructor for HandoffHandler, injected by Fx.
func NewHandoffHandler(uc usecase.HandoffUsecase) *HandoffHandler {
	return &HandoffHandler{uc: uc}
}

// CreateTicket mints a one-time handoff ticket bound to the caller's session.
func (h *HandoffHandler) CreateTicket(c echo.Context) error {
	claims, ok := middleware.GetSessionClaims(c)
	if !ok {
		return response.Unauthorized(c, "TOKEN_MISSING", "Missing session claims")
	}

	output, err := h.uc.CreateTicket(c.Request().Context(), claims.Subject, claims.SessionID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, &handoffTicketResponse{
		TicketID:  output.TicketID,
		RedeemURL: output.RedeemURL,
		ExpiresAt: output.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// TicketQR mints a handoff ticket and streams its redeem URL as a PNG QR
// code for the first device to display.
func (h *HandoffHandler) TicketQR(c echo.Context) error {
	claims, ok := middleware.GetSessionClaims(c)
	if !ok {
		return response.Unauthorized(c, "TOKEN_MISSING", "Missing session claims")
	}

	png, err := h.uc.TicketQR(c.Request().Context(), claims.Subject, claims.SessionID)
	if err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set("Content-Disposition", "inline; filename=handoff-qr.png")
	c.Response().Header().Set("Cache-Control", "no-store")

	return c.Blob(http.StatusOK, "image/png", png)
}

// Redeem consumes a handoff ticket exactly once and issues a new session
// pair for the redeeming device. No authentication is required, the ticket
// itself is the credential.
func (h *HandoffHandler) Redeem(c echo.Context) error {
	var req RedeemRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid redeem input")
	}

	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.Redeem(c.Request().Context(), req.TicketID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newSessionResponse(output))
}
