// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import "time"

// Provider represents the origin of a verified identity.
type Provider string

const (
	// ProviderGoogle indicates an identity verified through Google OAuth2.
	ProviderGoogle Provider = "google"
	// ProviderTest indicates a preconfigured test account, only valid outside production.
	ProviderTest Provider = "test"
)

// String returns the string representation of the Provider.
func (p Provider) String() string {
	return string(p)
}

// IsValid checks if the Provider is a valid value.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderGoogle, ProviderTest:
		return true
	default:
		return false
	}
}

// Identity is the durable record of an externally verified user.
// It is created on first successful verification and its identifying fields
// (subject, email, provider) never change afterwards. NeedsReauth is the one
// mutable flag: it marks that Google revoked the stored Fitness refresh token
// and the user must run the OAuth2 flow again.
type Identity struct {
	Subject     string    // Provider-scoped unique id (Google's 'sub' claim, or the test account id).
	Email       string    // The user's verified email address.
	Name        string    // Display name as reported by the provider.
	Picture     string    // Profile picture URL, may be empty.
	Provider    Provider  // Where this identity was verified.
	NeedsReauth bool      // Set when the Fitness refresh token was revoked upstream.
	CreatedAt   time.Time // When this identity was first seen.
}

// IsTest reports whether this identity came through the test-account bypass.
func (i *Identity) IsTest() bool {
	return i.Provider == ProviderTest
}
