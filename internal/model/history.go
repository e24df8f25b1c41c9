package model

import "time"

// HistoryEntry is one line of a loan's append-only audit trail. Entries are
// never updated or deleted and are listed ascending by timestamp.
type HistoryEntry struct {
	ID        int64     `gorm:"primaryKey"`
	LoanID    int64     `gorm:"not null;index"`
	Timestamp time.Time `gorm:"not null;index"`
	Message   string    `gorm:"size:1024;not null"`
}
