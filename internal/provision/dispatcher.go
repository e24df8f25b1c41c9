package provision

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"slaveloan-backend/internal/inventory"
	"slaveloan-backend/internal/model"
)

// Inventory is the slice of the inventory client the pipeline steps need.
type Inventory interface {
	FreeHosts(ctx context.Context, slaveType string) ([]inventory.Host, error)
	Reserve(ctx context.Context, fqdn string, loanID int64) error
}

// Assigner is the slice of the store the pipeline steps need.
type Assigner interface {
	AssignMachine(ctx context.Context, loanID int64, fqdn, ipaddress string) (*model.Loan, error)
}

// Notifier tells the loanee their machine is ready.
type Notifier interface {
	LoanReady(loanID int64)
}

// Dispatcher builds provisioning pipelines and submits them. Pipelines are
// keyed by loan id and each key is submitted at most once, so an enqueue
// retried after a reported failure cannot double-provision a loan.
type Dispatcher struct {
	inv       Inventory
	assigner  Assigner
	notifier  Notifier
	submitter Submitter

	mu        sync.Mutex
	submitted map[string]bool
}

// NewDispatcher creates a dispatcher wired to its collaborators.
func NewDispatcher(inv Inventory, assigner Assigner, notifier Notifier, submitter Submitter) *Dispatcher {
	return &Dispatcher{
		inv:       inv,
		assigner:  assigner,
		notifier:  notifier,
		submitter: submitter,
		submitted: make(map[string]bool),
	}
}

// Enqueue submits the provisioning pipeline for a loan. It returns once the
// submission is accepted; the pipeline itself runs asynchronously. A rejected
// submission is reported as ErrDispatch and may be retried.
func (d *Dispatcher) Enqueue(loanID int64, slaveType string) error {
	key := fmt.Sprintf("loan-%d", loanID)

	d.mu.Lock()
	if d.submitted[key] {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	p := d.buildPipeline(key, loanID, slaveType)
	if err := d.submitter.Submit(p); err != nil {
		return fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	d.mu.Lock()
	d.submitted[key] = true
	d.mu.Unlock()
	return nil
}

// buildPipeline assembles the ordered steps for one loan. The chosen host is
// threaded between steps through the shared closure variable.
func (d *Dispatcher) buildPipeline(key string, loanID int64, slaveType string) Pipeline {
	var candidates []inventory.Host
	var chosen inventory.Host

	steps := []Step{
		{
			Name: "find-free-host",
			Run: func(ctx context.Context) error {
				hosts, err := d.inv.FreeHosts(ctx, slaveType)
				if err != nil {
					return err
				}
				if len(hosts) == 0 {
					return fmt.Errorf("no free host for slavetype %s", slaveType)
				}
				candidates = hosts
				return nil
			},
		},
		{
			Name: "reserve-host",
			Run: func(ctx context.Context) error {
				for _, h := range candidates {
					err := d.inv.Reserve(ctx, h.FQDN, loanID)
					if err == nil {
						chosen = h
						return nil
					}
					if errors.Is(err, inventory.ErrHostTaken) {
						continue
					}
					return err
				}
				return fmt.Errorf("all %d candidate hosts were taken", len(candidates))
			},
		},
		{
			Name: "assign-machine",
			Run: func(ctx context.Context) error {
				_, err := d.assigner.AssignMachine(ctx, loanID, chosen.FQDN, chosen.IPAddress)
				return err
			},
		},
		{
			Name: "notify-loanee",
			Run: func(ctx context.Context) error {
				d.notifier.LoanReady(loanID)
				return nil
			},
		},
	}

	return Pipeline{Key: key, LoanID: loanID, SlaveType: slaveType, Steps: steps}
}
