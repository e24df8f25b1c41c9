// Package provision turns a freshly committed PENDING loan into an ACTIVE one
// by locating, reserving and assigning a physical machine. The work runs as an
// asynchronous pipeline; the request handler only pays for the enqueue.
package provision

import (
	"context"
	"errors"
)

// ErrDispatch is returned when a pipeline could not be submitted. The loan has
// already been committed at that point; it stays PENDING for a manual retry.
var ErrDispatch = errors.New("provisioning pipeline submission rejected")

// Step is one named unit of provisioning work.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pipeline is the ordered set of steps that provisions one loan. Key is
// derived from the loan id so a resubmitted pipeline is recognizable.
type Pipeline struct {
	Key       string
	LoanID    int64
	SlaveType string
	Steps     []Step
}

// Submitter is the task-execution collaborator pipelines are handed to. It
// accepts or rejects a submission and runs accepted pipelines on its own
// schedule.
type Submitter interface {
	Submit(p Pipeline) error
}
