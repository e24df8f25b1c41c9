package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"slaveloan-backend/internal/model"
	"slaveloan-backend/internal/store"
)

type sentNotification struct {
	endpoint string
	payload  string
}

// fakeSender records sends and answers with a fixed status code.
type fakeSender struct {
	sent   []sentNotification
	status int
}

func (f *fakeSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	f.sent = append(f.sent, sentNotification{endpoint: sub.Endpoint, payload: string(payload)})
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(bytes.NewReader(nil)),
	}, nil
}

var notifyDBCounter int64

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:notifytest%d?mode=memory&cache=shared", atomic.AddInt64(&notifyDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Human{},
		&model.Machine{},
		&model.Loan{},
		&model.HistoryEntry{},
		&model.PushSubscription{},
	))
	return store.NewGormStore(db)
}

func setupLoanWithSubscription(t *testing.T, s store.Store) *model.Loan {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.SaveSubscription(ctx, "jdoe@mozilla.com", model.PushSubscription{
		Endpoint: "https://push.example.com/abc",
		P256DH:   "p256dh-key",
		Auth:     "auth-secret",
	}))

	loan, err := s.CreateAdminLoan(ctx, store.AdminLoanParams{
		Status:        model.StatusActive,
		LdapEmail:     "jdoe@mozilla.com",
		BugzillaEmail: "jdoe@mozilla.com",
		FQDN:          "b-2008-ix-0042.build.example.com",
		IPAddress:     "10.0.0.42",
	})
	require.NoError(t, err)
	return loan
}

func TestNotifyLoaneeSendsPush(t *testing.T) {
	s := newTestStore(t)
	loan := setupLoanWithSubscription(t, s)

	wp := NewWorkerPool(1, s, &webpush.Options{})
	sender := &fakeSender{status: http.StatusCreated}
	wp.sender = sender

	wp.notifyLoanee(context.Background(), loan.ID)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "https://push.example.com/abc", sender.sent[0].endpoint)
	assert.Contains(t, sender.sent[0].payload, "b-2008-ix-0042.build.example.com")
	assert.Contains(t, sender.sent[0].payload, fmt.Sprintf("loan %d", loan.ID))
}

func TestNotifyLoaneeDeletesExpiredSubscription(t *testing.T) {
	s := newTestStore(t)
	loan := setupLoanWithSubscription(t, s)

	wp := NewWorkerPool(1, s, &webpush.Options{})
	wp.sender = &fakeSender{status: http.StatusGone}

	wp.notifyLoanee(context.Background(), loan.ID)

	_, err := s.GetSubscription(context.Background(), "https://push.example.com/abc")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNotifyLoaneeNoSubscriptionsIsQuiet(t *testing.T) {
	s := newTestStore(t)

	loan, err := s.CreateAdminLoan(context.Background(), store.AdminLoanParams{
		Status:        model.StatusActive,
		LdapEmail:     "nobody@mozilla.com",
		BugzillaEmail: "nobody@mozilla.com",
		FQDN:          "t-snow-r4-0010.test.example.com",
		IPAddress:     "10.0.2.10",
	})
	require.NoError(t, err)

	wp := NewWorkerPool(1, s, &webpush.Options{})
	sender := &fakeSender{status: http.StatusCreated}
	wp.sender = sender

	wp.notifyLoanee(context.Background(), loan.ID)
	assert.Empty(t, sender.sent)
}

func TestLoanReadyFeedsWorker(t *testing.T) {
	s := newTestStore(t)
	loan := setupLoanWithSubscription(t, s)

	wp := NewWorkerPool(1, s, &webpush.Options{})
	wp.sender = &fakeSender{status: http.StatusCreated}

	wp.LoanReady(loan.ID)
	assert.Equal(t, loan.ID, <-wp.Jobs())
}
