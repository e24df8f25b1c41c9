package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"slaveloan-backend/internal/model"
)

// AdminLoanParams carries the validated input for admin loan creation. When
// Status is not PENDING, FQDN and IPAddress must both be set.
type AdminLoanParams struct {
	Status        string
	LdapEmail     string
	BugzillaEmail string
	FQDN          string
	IPAddress     string
}

// LoanRequestParams carries the validated input for a user loan request.
// SlaveType is the canonical type; RequestedName is the name as submitted.
type LoanRequestParams struct {
	LdapEmail     string
	BugzillaEmail string
	BugID         *int64
	SlaveType     string
	RequestedName string
}

// Store defines all database operations for the loan tool.
type Store interface {
	DB() *gorm.DB

	CreateAdminLoan(ctx context.Context, p AdminLoanParams) (*model.Loan, error)
	CreateLoanRequest(ctx context.Context, p LoanRequestParams) (*model.Loan, error)
	AssignMachine(ctx context.Context, loanID int64, fqdn, ipaddress string) (*model.Loan, error)
	AppendHistory(ctx context.Context, loanID int64, msg string) error

	GetLoan(ctx context.Context, id int64) (*model.Loan, error)
	ListLoans(ctx context.Context) ([]model.Loan, error)
	ListAllLoans(ctx context.Context) ([]model.Loan, error)
	LoanHistory(ctx context.Context, loanID int64) ([]model.HistoryEntry, error)

	SaveSubscription(ctx context.Context, ldapEmail string, sub model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForHuman(ctx context.Context, humanID int64) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// humanAsUnique returns the single canonical Human row for an LDAP e-mail,
// inserting it if absent. A lost insert race surfaces as gorm.ErrDuplicatedKey
// from the unique index and is translated by the caller.
func humanAsUnique(tx *gorm.DB, ldapEmail, bugzillaEmail string) (*model.Human, error) {
	var h model.Human
	err := tx.Where("ldap_email = ?", ldapEmail).First(&h).Error
	if err == nil {
		return &h, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	h = model.Human{LdapEmail: ldapEmail, BugzillaEmail: bugzillaEmail}
	if err := tx.Create(&h).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

// machineAsUnique is the Machine counterpart of humanAsUnique, keyed by FQDN.
func machineAsUnique(tx *gorm.DB, fqdn, ipaddress string) (*model.Machine, error) {
	var m model.Machine
	err := tx.Where("fqdn = ?", fqdn).First(&m).Error
	if err == nil {
		return &m, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	m = model.Machine{FQDN: fqdn, IPAddress: ipaddress}
	if err := tx.Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// translateErr maps GORM sentinels onto the store's error taxonomy.
func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	return err
}

// CreateAdminLoan creates a loan with a caller-chosen status. The human (and,
// for non-PENDING statuses, the machine) is deduplicated inside the same
// transaction that writes the loan and its creation history entry.
func (s *gormStore) CreateAdminLoan(ctx context.Context, p AdminLoanParams) (*model.Loan, error) {
	var loan model.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := humanAsUnique(tx, p.LdapEmail, p.BugzillaEmail)
		if err != nil {
			return err
		}

		loan = model.Loan{Status: p.Status, HumanID: h.ID}
		if p.Status != model.StatusPending {
			m, err := machineAsUnique(tx, p.FQDN, p.IPAddress)
			if err != nil {
				return err
			}
			loan.MachineID = &m.ID
		}
		if err := tx.Omit("Human", "Machine").Create(&loan).Error; err != nil {
			return err
		}

		entry := model.HistoryEntry{
			LoanID:    loan.ID,
			Timestamp: time.Now().UTC(),
			Message:   "Adding to slave loan tool via admin interface",
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, translateErr(err)
	}
	return s.GetLoan(ctx, loan.ID)
}

// CreateLoanRequest creates a PENDING loan for a user request. Provisioning is
// the caller's responsibility; this only commits the loan, its creation
// history entry and (if absent) the human row, atomically.
func (s *gormStore) CreateLoanRequest(ctx context.Context, p LoanRequestParams) (*model.Loan, error) {
	var loan model.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := humanAsUnique(tx, p.LdapEmail, p.BugzillaEmail)
		if err != nil {
			return err
		}

		loan = model.Loan{Status: model.StatusPending, HumanID: h.ID, BugID: p.BugID}
		if err := tx.Omit("Human", "Machine").Create(&loan).Error; err != nil {
			return err
		}

		entry := model.HistoryEntry{
			LoanID:    loan.ID,
			Timestamp: time.Now().UTC(),
			Message: fmt.Sprintf("Requesting loan for slavetype %s (original: '%s')",
				p.SlaveType, p.RequestedName),
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, translateErr(err)
	}
	return s.GetLoan(ctx, loan.ID)
}

// AssignMachine attaches a machine to a loan and advances it to ACTIVE,
// writing the machine row (deduplicated by FQDN) and a history entry in the
// same transaction. Called by the provisioning pipeline.
func (s *gormStore) AssignMachine(ctx context.Context, loanID int64, fqdn, ipaddress string) (*model.Loan, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loan model.Loan
		if err := tx.First(&loan, loanID).Error; err != nil {
			return err
		}

		m, err := machineAsUnique(tx, fqdn, ipaddress)
		if err != nil {
			return err
		}

		updates := map[string]any{"machine_id": m.ID, "status": model.StatusActive}
		if err := tx.Model(&loan).Updates(updates).Error; err != nil {
			return err
		}

		entry := model.HistoryEntry{
			LoanID:    loanID,
			Timestamp: time.Now().UTC(),
			Message:   fmt.Sprintf("Assigned machine %s (%s), loan is now ACTIVE", fqdn, ipaddress),
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, translateErr(err)
	}
	return s.GetLoan(ctx, loanID)
}

// AppendHistory adds one audit line to a loan's trail.
func (s *gormStore) AppendHistory(ctx context.Context, loanID int64, msg string) error {
	var loan model.Loan
	if err := s.db.WithContext(ctx).First(&loan, loanID).Error; err != nil {
		return translateErr(err)
	}
	entry := model.HistoryEntry{
		LoanID:    loanID,
		Timestamp: time.Now().UTC(),
		Message:   msg,
	}
	return s.db.WithContext(ctx).Create(&entry).Error
}

// GetLoan fetches a single loan with its human and machine.
func (s *gormStore) GetLoan(ctx context.Context, id int64) (*model.Loan, error) {
	var loan model.Loan
	err := s.db.WithContext(ctx).
		Preload("Human").
		Preload("Machine").
		First(&loan, id).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &loan, nil
}

// ListLoans returns every loan that has a machine assigned.
func (s *gormStore) ListLoans(ctx context.Context) ([]model.Loan, error) {
	var loans []model.Loan
	err := s.db.WithContext(ctx).
		Preload("Human").
		Preload("Machine").
		Where("machine_id IS NOT NULL").
		Find(&loans).Error
	return loans, err
}

// ListAllLoans returns every loan regardless of machine assignment.
func (s *gormStore) ListAllLoans(ctx context.Context) ([]model.Loan, error) {
	var loans []model.Loan
	err := s.db.WithContext(ctx).
		Preload("Human").
		Preload("Machine").
		Find(&loans).Error
	return loans, err
}

// LoanHistory returns a loan's audit trail, ascending by timestamp.
func (s *gormStore) LoanHistory(ctx context.Context, loanID int64) ([]model.HistoryEntry, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	var entries []model.HistoryEntry
	err := s.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("timestamp asc").
		Find(&entries).Error
	return entries, err
}

// SaveSubscription upserts a push subscription for the human with the given
// LDAP e-mail, creating the human row if needed.
func (s *gormStore) SaveSubscription(ctx context.Context, ldapEmail string, sub model.PushSubscription) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := humanAsUnique(tx, ldapEmail, ldapEmail)
		if err != nil {
			return err
		}
		sub.HumanID = h.ID
		return tx.Save(&sub).Error
	})
	return translateErr(err)
}

// GetSubscription fetches a push subscription by endpoint.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &sub, nil
}

// DeleteSubscription removes a push subscription by endpoint.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

// SubscriptionsForHuman lists all push subscriptions registered by a human.
func (s *gormStore) SubscriptionsForHuman(ctx context.Context, humanID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).Where("human_id = ?", humanID).Find(&subs).Error
	return subs, err
}
