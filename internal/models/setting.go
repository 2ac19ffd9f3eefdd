package models

import "gorm.io/gorm"

// Setting holds per-user journal settings.
// There is at most one row per user.
type Setting struct {
	gorm.Model
	UserID       string  `json:"user_id" gorm:"uniqueIndex"`
	StartingCash float64 `json:"starting_cash"`
}
