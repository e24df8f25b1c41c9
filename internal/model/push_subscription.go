package model

import "time"

// PushSubscription holds a loanee's browser push subscription, used to tell
// them when their loaned machine is ready.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	HumanID   int64     `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
