package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// TokenRecord is the persisted OAuth credential. It is created by the
// authorization flow, mutated in place by the token manager on every
// successful refresh, and persisted after every mutation. No other
// component writes it.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes"`
}

// ExpiredWithin reports whether the access token is expired or will be
// within margin. A record without an expiry is treated as expired so a
// refresh establishes a known lifetime.
func (r *TokenRecord) ExpiredWithin(margin time.Duration) bool {
	if r.Expiry.IsZero() {
		return true
	}
	return time.Now().After(r.Expiry.Add(-margin))
}

// newRecordFromToken builds a TokenRecord from a token endpoint
// response. When the endpoint omits the refresh token (Google does on
// repeat grants), the previous one is carried forward.
func newRecordFromToken(tok *oauth2.Token, previousRefresh string, scopes []string) *TokenRecord {
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return &TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		Expiry:       tok.Expiry,
		Scopes:       scopes,
	}
}
