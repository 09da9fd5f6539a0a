package models

import "time"

// Preferences are the per-user UI settings the dashboard used to keep in
// browser state. They travel with the request session instead.
type Preferences struct {
	UserID    int64     `db:"user_id" json:"-"`
	Language  string    `db:"language" json:"language"`
	Theme     string    `db:"theme" json:"theme"`
	Timezone  string    `db:"timezone" json:"timezone"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func DefaultPreferences(userID int64) *Preferences {
	return &Preferences{
		UserID:   userID,
		Language: "en",
		Theme:    "system",
		Timezone: "UTC",
	}
}
