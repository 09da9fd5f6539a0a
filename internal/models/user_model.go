package models

import "time"

// User is an account holder signed in through Google. Email is the identity;
// the Google profile fields are refreshed on every login.
type User struct {
	ID             int64     `json:"id"`
	GoogleID       string    `json:"-"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	ProfilePicture string    `json:"profile_picture"`
	LastLoginAt    time.Time `json:"last_login_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
