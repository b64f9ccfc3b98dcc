package credentials

import (
	"time"

	"github.com/dvcrn/bank-api-client/internal/jsonx"
)

// Credential is the bearer token pair issued by the bank API.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	// ExpiresAt is a unix-seconds hint; zero means unknown.
	ExpiresAt int64 `json:"expires_at,omitempty"`
}

// Valid reports whether the credential carries an access token.
func (c *Credential) Valid() bool {
	return c != nil && c.AccessToken != ""
}

// Expiry returns the expiry hint, if one is known.
func (c *Credential) Expiry() (time.Time, bool) {
	if c == nil || c.ExpiresAt <= 0 {
		return time.Time{}, false
	}
	return time.Unix(c.ExpiresAt, 0), true
}

// Clone returns a copy that shares no state with c.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// ExpiresWithin reports whether the hint falls within d of now. Credentials
// without a hint never report true.
func (c *Credential) ExpiresWithin(d time.Duration, now time.Time) bool {
	exp, ok := c.Expiry()
	if !ok {
		return false
	}
	return !now.Add(d).Before(exp)
}

// Principal is the authenticated identity cached next to the credential.
type Principal struct {
	ID          jsonx.ID `json:"id"`
	Username    string   `json:"username,omitempty"`
	Role        string   `json:"role,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	Email       string   `json:"email,omitempty"`
}

// Clone returns a copy of p, nil for nil.
func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// Session is the persisted pair. Stores serialize it as one record so the
// credential and principal are always replaced together.
type Session struct {
	Credential *Credential `json:"credential"`
	Principal  *Principal  `json:"principal,omitempty"`
	SavedAt    int64       `json:"saved_at,omitempty"`
}

// TokenResponse is the body returned by the login and refresh endpoints.
type TokenResponse struct {
	AccessToken  string     `json:"access_token"`
	Token        string     `json:"token,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	TokenType    string     `json:"token_type,omitempty"`
	ExpiresIn    int64      `json:"expires_in,omitempty"`
	User         *Principal `json:"user,omitempty"`
}

// Credential builds a Credential from the response. A refresh response that
// omits the refresh token keeps previous's.
func (r *TokenResponse) Credential(previous *Credential, now time.Time) *Credential {
	access := r.AccessToken
	if access == "" {
		access = r.Token
	}
	cred := &Credential{
		AccessToken:  access,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
	}
	if cred.RefreshToken == "" && previous != nil {
		cred.RefreshToken = previous.RefreshToken
	}
	if cred.TokenType == "" {
		cred.TokenType = "Bearer"
	}
	if r.ExpiresIn > 0 {
		cred.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second).Unix()
	} else if exp, ok := ExpiryHint(access); ok {
		cred.ExpiresAt = exp.Unix()
	}
	return cred
}
