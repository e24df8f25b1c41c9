package model

import "time"

// Human represents a person who can hold a loan. The LDAP e-mail is the
// natural key; the row is created at most once per address via the store's
// lookup-or-create path and is never deleted.
type Human struct {
	ID            int64     `gorm:"primaryKey"`
	LdapEmail     string    `gorm:"uniqueIndex;size:256;not null"`
	BugzillaEmail string    `gorm:"size:256;not null"`
	CreatedAt     time.Time `gorm:"not null"`
}
