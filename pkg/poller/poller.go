// Package poller implements the client-side fallback for payment status:
// a bounded, fixed-interval polling loop that covers the window where the
// push notification never arrives.
package poller

import (
	"context"
	"sync"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusUnknown   Status = "unknown"
)

// TimeoutMessage is what the user sees when neither the callback nor
// polling resolves within the attempt cap.
const TimeoutMessage = "Payment status check timed out. Please check your M-Pesa app or SMS for confirmation."

type Result struct {
	Status  Status
	Receipt string
	Message string
}

// CheckFunc asks the backend for the current status of a checkout request.
type CheckFunc func(ctx context.Context, checkoutRequestID string) (Result, error)

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 12
)

// Poller races against the push notification path: whichever reports a
// terminal state first wins, and the loser cannot override it. Check errors
// and pending responses both consume an attempt.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	Check       CheckFunc

	mu      sync.Mutex
	outcome Result
	settled bool
	done    chan struct{}
}

func New(check CheckFunc) *Poller {
	return &Poller{
		Interval:    DefaultInterval,
		MaxAttempts: DefaultMaxAttempts,
		Check:       check,
		done:        make(chan struct{}),
	}
}

// Resolve commits a terminal state observed out of band (the websocket
// push). Returns false if an earlier terminal state already won.
func (p *Poller) Resolve(res Result) bool {
	return p.commit(res)
}

// Outcome returns the committed terminal result, if any.
func (p *Poller) Outcome() (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome, p.settled
}

// Run polls until a terminal state is committed or the attempt cap is hit,
// then returns the authoritative outcome. Safe to run concurrently with
// Resolve.
func (p *Poller) Run(ctx context.Context, checkoutRequestID string) Result {
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			p.commit(Result{Status: StatusUnknown, Message: TimeoutMessage})
			res, _ := p.Outcome()
			return res
		case <-p.done:
			res, _ := p.Outcome()
			return res
		case <-time.After(p.Interval):
		}

		res, err := p.Check(ctx, checkoutRequestID)
		if err != nil {
			continue
		}
		if res.Status == StatusPending || res.Status == "" {
			continue
		}

		p.commit(res)
		out, _ := p.Outcome()
		return out
	}

	p.commit(Result{Status: StatusUnknown, Message: TimeoutMessage})
	res, _ := p.Outcome()
	return res
}

// commit records the first terminal state; later calls are no-ops so a
// stray late poll response can never regress what the user was shown.
func (p *Poller) commit(res Result) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return false
	}
	p.outcome = res
	p.settled = true
	close(p.done)
	return true
}
