// Package queue implements the single-goroutine worker loop: an
// unbounded FIFO of commands, each carrying its own correlation id and
// a bounded transition history, processed one at a time to completion.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Status is a command's position in its lifecycle.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusQueued    Status = "QUEUED"
	StatusExecuting Status = "EXECUTING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusTimedOut  Status = "TIMED_OUT"
	StatusCancelled Status = "CANCELLED"
)

// maxTransitionHistory bounds each command's logged transition list so
// a long-lived worker doesn't accumulate history forever.
const maxTransitionHistory = 1000

// Transition is one status change, timestamped.
type Transition struct {
	Status Status
	At     time.Time
}

// Command is one unit of work on the queue: a name, an opaque payload
// the worker's dispatch table knows how to decode, and the two
// independent ids the wire protocol requires — queryId from the UI,
// correlationId assigned by the proxy.
type Command struct {
	QueryID       string
	CorrelationID string
	Name          string
	Payload       any

	status     Status
	history    []Transition
	enqueuedAt time.Time

	result any
	err    error
	done   chan struct{}
}

// New creates a Command in PENDING state with a fresh correlation id.
func New(queryID, name string, payload any) *Command {
	c := &Command{
		QueryID:       queryID,
		CorrelationID: uuid.NewString(),
		Name:          name,
		Payload:       payload,
		status:        StatusPending,
		enqueuedAt:    time.Now(),
		done:          make(chan struct{}),
	}
	c.transition(StatusPending)
	return c
}

// Status returns the command's current lifecycle status.
func (c *Command) Status() Status { return c.status }

// History returns a copy of the recorded transitions, oldest first.
func (c *Command) History() []Transition {
	out := make([]Transition, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Command) transition(s Status) {
	c.status = s
	c.history = append(c.history, Transition{Status: s, At: time.Now()})
	if len(c.history) > maxTransitionHistory {
		c.history = c.history[len(c.history)-maxTransitionHistory:]
	}
}

// Wait blocks until the command reaches a terminal state and returns
// its result/error.
func (c *Command) Wait() (any, error) {
	<-c.done
	return c.result, c.err
}

func (c *Command) complete(result any, err error) {
	c.result = result
	c.err = err
	if err != nil {
		c.transition(StatusFailed)
	} else {
		c.transition(StatusCompleted)
	}
	close(c.done)
}

func (c *Command) cancel() {
	c.transition(StatusCancelled)
	close(c.done)
}

func (c *Command) timeout() {
	c.transition(StatusTimedOut)
	close(c.done)
}
