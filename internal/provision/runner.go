package provision

import (
	"context"
	"errors"
	"log"
)

// HistoryAppender records the failure of a pipeline on the loan's audit trail.
type HistoryAppender interface {
	AppendHistory(ctx context.Context, loanID int64, msg string) error
}

// Runner is an in-process pipeline executor: a pool of workers fed from a
// buffered channel. Submit rejects when the queue is full rather than
// blocking the request path.
type Runner struct {
	workers int
	jobs    chan Pipeline
	history HistoryAppender
}

// NewRunner creates a runner with the given worker count and queue size.
func NewRunner(workers, queueSize int, history HistoryAppender) *Runner {
	return &Runner{
		workers: workers,
		jobs:    make(chan Pipeline, queueSize),
		history: history,
	}
}

// Start launches the worker goroutines.
func (r *Runner) Start(ctx context.Context) {
	for i := 0; i < r.workers; i++ {
		go r.worker(ctx, i)
	}
}

// Submit implements Submitter. It accepts the pipeline if queue capacity
// allows and rejects otherwise.
func (r *Runner) Submit(p Pipeline) error {
	select {
	case r.jobs <- p:
		return nil
	default:
		return errors.New("provisioning queue is full")
	}
}

// Jobs returns the jobs channel for testing.
func (r *Runner) Jobs() chan Pipeline {
	return r.jobs
}

func (r *Runner) worker(ctx context.Context, id int) {
	log.Printf("Provisioning worker %d started", id)
	for {
		select {
		case p := <-r.jobs:
			log.Printf("Worker %d running pipeline %s (slavetype %s)", id, p.Key, p.SlaveType)
			r.run(ctx, p)
		case <-ctx.Done():
			log.Printf("Provisioning worker %d shutting down", id)
			return
		}
	}
}

// run executes the pipeline steps in order. A failed step stops the pipeline
// and is recorded on the loan's history; the loan stays PENDING so an
// operator can retrigger provisioning.
func (r *Runner) run(ctx context.Context, p Pipeline) {
	for _, step := range p.Steps {
		if err := step.Run(ctx); err != nil {
			log.Printf("Pipeline %s failed at step %s: %v", p.Key, step.Name, err)
			msg := "Provisioning failed at step " + step.Name + ": " + err.Error()
			if herr := r.history.AppendHistory(ctx, p.LoanID, msg); herr != nil {
				log.Printf("Failed to record pipeline failure for loan %d: %v", p.LoanID, herr)
			}
			return
		}
	}
	log.Printf("Pipeline %s completed", p.Key)
}
