package model

import "time"

// Loan statuses. The admin interface may set any allow-listed status; only
// PENDING carries special meaning for the core (no machine assigned yet).
const (
	StatusPending  = "PENDING"
	StatusActive   = "ACTIVE"
	StatusComplete = "COMPLETE"
)

// KnownStatuses is the allow-list the admin creation path validates against.
var KnownStatuses = []string{StatusPending, StatusActive, StatusComplete}

// KnownStatus reports whether s is an allow-listed loan status.
func KnownStatus(s string) bool {
	for _, k := range KnownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// Loan ties a human to a (possibly not-yet-assigned) machine. MachineID is
// null exactly while the loan is PENDING.
type Loan struct {
	ID        int64  `gorm:"primaryKey"`
	Status    string `gorm:"size:32;not null;index"`
	HumanID   int64  `gorm:"not null;index"`
	MachineID *int64 `gorm:"index"`
	BugID     *int64
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	// Associations
	Human   Human    `gorm:"constraint:OnDelete:RESTRICT"`
	Machine *Machine `gorm:"constraint:OnDelete:RESTRICT"`
}
