package entity

import "time"

// FitnessCredential is the Google Fitness API token pair stored for one
// identity. The access token expires within the hour; the refresh token is
// assumed long-lived until Google revokes it. A later upsert fully replaces
// the stored pair, there is no merging of fields.
type FitnessCredential struct {
	IdentitySubject string    // Owning identity, unique per credential.
	AccessToken     string    // Current Google Fitness access token.
	RefreshToken    string    // Google refresh token used to mint new access tokens.
	ExpiresAt       time.Time // When the access token stops being accepted by Google.
	LastRefreshedAt time.Time // When we last completed a refresh against Google.
}

// FreshFor reports whether the access token is still usable with the given
// safety margin before its expiry.
func (c *FitnessCredential) FreshFor(margin time.Duration, now time.Time) bool {
	return c.ExpiresAt.After(now.Add(margin))
}
