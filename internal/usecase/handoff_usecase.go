// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"
	"time"
)

// HandoffTicketOutput returns a freshly minted handoff ticket together with
// the redeem URL a QR code would encode.
type HandoffTicketOutput struct {
	TicketID  string
	RedeemURL string
	ExpiresAt time.Time
}

// HandoffUsecase defines the interface for one-time session handoff between
// devices.
type HandoffUsecase interface {
	// CreateTicket mints a single-use ticket bound to the caller's session.
	CreateTicket(ctx context.Context, subject, sessionID string) (*HandoffTicketOutput, error)

	// TicketQR renders the redeem URL of a fresh ticket as a PNG QR code.
	TicketQR(ctx context.Context, subject, sessionID string) ([]byte, error)

	// Redeem consumes a ticket exactly once and issues a new session pair for
	// the redeeming device. Expired and already consumed tickets fail with
	// their precise taxonomy errors.
	Redeem(ctx context.Context, ticketID string) (*SessionOutput, error)
}
