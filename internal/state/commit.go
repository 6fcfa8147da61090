package state

import (
	"context"
	"sync"
	"time"
)

// Outcome is the result of the remote half of a mutation.
type Outcome int

const (
	// OutcomePending means the remote write has not finished.
	OutcomePending Outcome = iota
	// OutcomeSkipped means no one was signed in, so nothing was written.
	OutcomeSkipped
	// OutcomePersisted means the document store accepted the write.
	OutcomePersisted
	// OutcomeFailed means the write failed. Local state was kept.
	OutcomeFailed
	// OutcomeSuperseded means the document already held a newer value and a
	// later local mutation of the same field carries the current value.
	OutcomeSuperseded
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeSkipped:
		return "skipped"
	case OutcomePersisted:
		return "persisted"
	case OutcomeFailed:
		return "failed"
	case OutcomeSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Commit is the handle of one mutation. Value is the locally applied field
// value, visible to readers before the commit is returned.
type Commit struct {
	Value any

	once    sync.Once
	done    chan struct{}
	mu      sync.Mutex
	outcome Outcome
	err     error
}

func newCommit(value any) *Commit {
	return &Commit{Value: value, done: make(chan struct{})}
}

func (c *Commit) finish(outcome Outcome, err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.outcome, c.err = outcome, err
		c.mu.Unlock()
		close(c.done)
	})
}

// Done is closed once the remote half has finished.
func (c *Commit) Done() <-chan struct{} {
	return c.done
}

// Outcome returns the remote outcome so far.
func (c *Commit) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Err returns the remote write error, if any.
func (c *Commit) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Wait blocks until the remote half finishes or ctx is done.
func (c *Commit) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-c.done:
		return c.Outcome(), c.Err()
	case <-ctx.Done():
		return OutcomePending, ctx.Err()
	}
}

// sequencer hands out strictly increasing write sequence numbers derived
// from the wall clock. Later phase-1 changes always get larger numbers.
type sequencer struct {
	mu   sync.Mutex
	last uint64
	now  func() time.Time
}

func newSequencer(now func() time.Time) *sequencer {
	return &sequencer{now: now}
}

func (q *sequencer) next() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := uint64(max(q.now().UnixNano(), 0))
	if n <= q.last {
		n = q.last + 1
	}
	q.last = n
	return n
}

// observe makes later sequences greater than n.
func (q *sequencer) observe(n uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.last = max(q.last, n)
}
