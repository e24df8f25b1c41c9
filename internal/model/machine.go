package model

import "time"

// Machine represents a physical slave that can be loaned out. The FQDN is the
// natural key enforced by a unique index.
type Machine struct {
	ID        int64     `gorm:"primaryKey"`
	FQDN      string    `gorm:"uniqueIndex;size:256;not null"`
	IPAddress string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
