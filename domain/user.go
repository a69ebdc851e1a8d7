package domain

import "time"

// MinPasswordLength is the shortest password accepted at registration and on change.
const MinPasswordLength = 6

// User represents a registered account. PasswordHash never leaves the process.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsLoggedIn   bool      `json:"is_logged_in"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Clone returns a shallow copy so callers can mutate without touching cached values.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
