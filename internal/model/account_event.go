package model

import "time"

const (
	AccountEventRegistered = "registered"
	AccountEventUpdated    = "updated"
	AccountEventDeleted    = "deleted"
)

// AccountEvent is an audit record of a user account lifecycle change.
type AccountEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Username   string    `gorm:"size:64;not null" json:"username"`
	Kind       string    `gorm:"size:16;not null;index" json:"kind"`
	OccurredAt time.Time `gorm:"not null" json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}
