package models

import "time"

// RefreshToken is the server-side record of an issued refresh token. The
// signed token itself is not stored, only its id (jti).
type RefreshToken struct {
	ID        string
	UserID    string
	Expires   time.Time
	CreatedAt time.Time
}
