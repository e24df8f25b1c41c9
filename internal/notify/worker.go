package notify

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"slaveloan-backend/internal/store"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of Sender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers telling loanees their machine is ready.
type WorkerPool struct {
	size    int
	jobs    chan int64
	store   store.Store
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new notification worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// LoanReady queues a loan-ready notification for the loan's requester.
func (wp *WorkerPool) LoanReady(loanID int64) {
	wp.jobs <- loanID
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case loanID := <-wp.jobs:
			log.Printf("Notification worker %d processing loan %d", id, loanID)
			wp.notifyLoanee(ctx, loanID)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// notifyLoanee fetches the loan and the requester's subscriptions and sends
// one notification per subscription.
func (wp *WorkerPool) notifyLoanee(ctx context.Context, loanID int64) {
	loan, err := wp.store.GetLoan(ctx, loanID)
	if err != nil {
		log.Printf("Error fetching loan %d: %v", loanID, err)
		return
	}

	subscriptions, err := wp.store.SubscriptionsForHuman(ctx, loan.HumanID)
	if err != nil {
		log.Printf("Error fetching subscriptions for human %d: %v", loan.HumanID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	machineLabel := fmt.Sprintf("for loan %d", loanID)
	if loan.Machine != nil {
		machineLabel = loan.Machine.FQDN
	}
	message := fmt.Sprintf("Your loaned machine %s is ready (loan %d)", machineLabel, loanID)

	log.Printf("Sending %d notifications for loan %d", len(subscriptions), loanID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub.Endpoint, sub.P256DH, sub.Auth, []byte(message))
	}
}

// sendNotification sends a single web push notification, deleting the
// subscription if the push service reports it expired.
func (wp *WorkerPool) sendNotification(ctx context.Context, endpoint, p256dh, auth string, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: endpoint,
		Keys: webpush.Keys{
			P256dh: p256dh,
			Auth:   auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", endpoint)
		if err := wp.store.DeleteSubscription(ctx, endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", endpoint, err)
		}
	}
}
