package models

import "time"

// Token is a bearer credential bound to a user email.
type Token struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Expires int64  `json:"expires"` // unix milliseconds
}

// ExpiresAt returns the expiry as a time.Time.
func (t Token) ExpiresAt() time.Time {
	return time.UnixMilli(t.Expires)
}

// ValidAt reports whether the token is still usable at now.
func (t Token) ValidAt(now time.Time) bool {
	return t.Expires > now.UnixMilli()
}
