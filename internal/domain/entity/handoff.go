package entity

import (
	"time"

	"github.com/google/uuid"
)

// HandoffTicket is the one-time payload a QR code encodes. It lets a second
// device adopt an authenticated session without repeating the OAuth2 flow.
// Tickets live only in the shared cache and die with their TTL; the Consumed
// flag makes redemption single-use even before expiry.
type HandoffTicket struct {
	ID              uuid.UUID `json:"id"`
	IdentitySubject string    `json:"identitySubject"`
	SessionID       uuid.UUID `json:"sessionId"`
	ExpiresAt       time.Time `json:"expiresAt"`
	Consumed        bool      `json:"consumed"`
}

// Expired reports whether the ticket is past its expiry.
func (t *HandoffTicket) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
