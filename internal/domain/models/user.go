package models

import (
	"slices"
	"time"
)

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	WalletAddress  *string   `json:"wallet_address,omitempty"`
	EcoPoints      int64     `json:"eco_points"`
	Achievements   []string  `json:"achievements"`
	RedemptionCode string    `json:"qr_code"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasAchievement reports whether the user already holds achievement id.
func (u *User) HasAchievement(id string) bool {
	return slices.Contains(u.Achievements, id)
}
