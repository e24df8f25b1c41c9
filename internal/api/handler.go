package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"slaveloan-backend/internal/store"
)

// Dispatcher enqueues the provisioning pipeline for a new loan request.
type Dispatcher interface {
	Enqueue(loanID int64, slaveType string) error
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store      store.Store
	dispatcher Dispatcher
	webpush    *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, d Dispatcher, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:      s,
		dispatcher: d,
		webpush:    webpushOptions,
	}
}
