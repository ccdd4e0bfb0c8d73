package models

import "time"

// User is a chat-front-end identity with its watched tickers embedded.
// Tickers is semantically a set; insertion order is preserved for display.
type User struct {
	UserID    string    `json:"user_id"`
	Tickers   []string  `json:"tickers"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTicker reports whether the user already watches the ticker.
func (u *User) HasTicker(ticker string) bool {
	for _, t := range u.Tickers {
		if t == ticker {
			return true
		}
	}
	return false
}
