package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionModel mirrors the 'sessions' table. One row per issued refresh
// token; deleting the row revokes the token.
type SessionModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	IdentitySubject string    `gorm:"type:varchar(255);not null;index"`
	TokenHash       string    `gorm:"type:varchar(255);unique;not null"`
	ExpiresAt       time.Time `gorm:"not null"`
	CreatedAt       time.Time
}

// TableName explicitly sets the table name for GORM.
func (SessionModel) TableName() string {
	return "sessions"
}
