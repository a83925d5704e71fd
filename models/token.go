// ABOUTME: OAuth token material carried between the auth client and storage
// ABOUTME: Expiry checks apply a safety buffer so tokens are refreshed early
package models

import "time"

// tokenExpiryBuffer is subtracted from the recorded expiry so a token is
// treated as expired before the server would actually reject it.
const tokenExpiryBuffer = 5 * time.Minute

// TokenInfo holds the OAuth2 token material for the REST provider.
type TokenInfo struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// IsExpired reports whether the token should no longer be used.
func (t TokenInfo) IsExpired() bool {
	return !time.Now().Before(t.ExpiresAt.Add(-tokenExpiryBuffer))
}
