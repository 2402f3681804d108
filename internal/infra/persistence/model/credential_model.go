package model

import "time"

// CredentialModel mirrors the 'fitness_credentials' table. At most one row
// per identity; an upsert fully replaces the stored pair.
type CredentialModel struct {
	IdentitySubject string    `gorm:"type:varchar(255);primary_key"`
	AccessToken     string    `gorm:"type:text;not null"`
	RefreshToken    string    `gorm:"type:text;not null"`
	ExpiresAt       time.Time `gorm:"not null"`
	LastRefreshedAt time.Time `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName explicitly sets the table name for GORM.
func (CredentialModel) TableName() string {
	return "fitness_credentials"
}
