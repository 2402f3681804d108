// Package model contains the GORM table mappings for the PostgreSQL schema.
package model

import "time"

// IdentityModel mirrors the 'identities' table. The provider-scoped subject
// is the natural primary key; no surrogate id exists.
// It is an exported type so it can be used by the GORM Gen tool from other packages.
type IdentityModel struct {
	Subject     string `gorm:"type:varchar(255);primary_key"`
	Email       string `gorm:"type:varchar(255);not null;index"`
	Name        string `gorm:"type:varchar(100)"`
	Picture     string `gorm:"type:varchar(512)"`
	Provider    string `gorm:"type:varchar(50);not null"`
	NeedsReauth bool   `gorm:"not null;default:false"`
	CreatedAt   time.Time

	Sessions   []SessionModel   `gorm:"foreignKey:IdentitySubject;references:Subject"`
	Credential *CredentialModel `gorm:"foreignKey:IdentitySubject;references:Subject"`
}

// TableName explicitly sets the table name for GORM.
func (IdentityModel) TableName() string {
	return "identities"
}
