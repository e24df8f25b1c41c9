package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDB creates a store backed by a sqlmock connection, for asserting the
// exact SQL the store emits.
func newMockDB(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	return NewGormStore(gormDB), mock
}

func TestListLoansFiltersAtSQLLevel(t *testing.T) {
	s, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "loans" WHERE machine_id IS NOT NULL`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "human_id", "machine_id"}))

	loans, err := s.ListLoans(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, loans)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanHistoryOrdersAscendingAtSQLLevel(t *testing.T) {
	s, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "loans" WHERE "loans"."id" = $1`)).
		WithArgs(int64(7), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "human_id"}).
			AddRow(7, "PENDING", 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "humans" WHERE "humans"."id" = $1`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ldap_email", "bugzilla_email"}).
			AddRow(1, "jdoe@mozilla.com", "jdoe@mozilla.com"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "history_entries" WHERE loan_id = $1 ORDER BY timestamp asc`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "loan_id", "message"}))

	_, err := s.LoanHistory(context.Background(), 7)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
