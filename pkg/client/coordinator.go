package client

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/takutakahashi/authclient/pkg/credentials"
)

// Renewer exchanges a renewal credential for a new credential pair
type Renewer interface {
	Renew(ctx context.Context, refreshToken string) (credentials.Pair, error)
}

// RenewerFunc adapts a function to the Renewer interface
type RenewerFunc func(ctx context.Context, refreshToken string) (credentials.Pair, error)

// Renew calls f(ctx, refreshToken)
func (f RenewerFunc) Renew(ctx context.Context, refreshToken string) (credentials.Pair, error) {
	return f(ctx, refreshToken)
}

// RenewalHook observes every successfully renewed pair, after it has been
// stored and the waiting requests have been resumed
type RenewalHook func(ctx context.Context, pair credentials.Pair)

// Continuation is a request suspended behind an in-flight renewal.
// Exactly one of Resolve or Reject is called, once.
type Continuation struct {
	// Resolve receives the new access credential. The next queued
	// continuation is not resumed until Resolve returns, and Resolve must
	// not call back into the coordinator.
	Resolve func(accessToken string)
	// Reject receives the renewal error
	Reject func(err error)
}

// Coordinator single-flights credential renewal.
// While a renewal is in flight, further expired requests queue up and are
// resumed in arrival order once it settles.
type Coordinator struct {
	store   *credentials.Store
	renewer Renewer
	logger  logrus.FieldLogger
	onRenew RenewalHook

	mu         sync.Mutex
	refreshing bool
	queue      []Continuation
}

// NewCoordinator creates an idle coordinator
func NewCoordinator(store *credentials.Store, renewer Renewer, logger logrus.FieldLogger) *Coordinator {
	return &Coordinator{
		store:   store,
		renewer: renewer,
		logger:  logger,
	}
}

// OnRenew registers a hook run after every successful renewal
func (c *Coordinator) OnRenew(hook RenewalHook) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onRenew = hook
}

// Refreshing reports whether a renewal is in flight
func (c *Coordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.refreshing
}

// Pending returns the number of queued continuations
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.queue)
}

// Enqueue appends cont to the queue if a renewal is in flight.
// It returns false, leaving cont untouched, when the coordinator is idle.
// Await queues through the same path while holding the lock.
func (c *Coordinator) Enqueue(cont Continuation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.enqueueLocked(cont) > 0
}

// enqueueLocked returns the queue position of cont, or 0 when idle
func (c *Coordinator) enqueueLocked(cont Continuation) int {
	if !c.refreshing {
		return 0
	}
	c.queue = append(c.queue, cont)
	return len(c.queue)
}

// Await handles a request that was rejected as expired while carrying
// sentWith as its access credential.
//
// If a renewal is already in flight, cont is queued and Await returns
// queued=true immediately; cont is later resolved or rejected by the renewal.
// If the store already holds a different access credential, a renewal has
// completed since the request was sent and that credential is returned
// without renewing again. Otherwise the caller becomes the trigger: Await
// performs the single renewal call, drains the queue and returns the new
// access credential or the renewal error.
func (c *Coordinator) Await(ctx context.Context, sentWith string, cont Continuation) (accessToken string, queued bool, err error) {
	c.mu.Lock()
	if position := c.enqueueLocked(cont); position > 0 {
		c.mu.Unlock()

		c.logger.WithField("queued", position).Debug("renewal in flight, request queued")
		return "", true, nil
	}

	current := c.store.Current()
	if current.AccessToken != "" && current.AccessToken != sentWith {
		c.mu.Unlock()
		return current.AccessToken, false, nil
	}

	c.refreshing = true
	c.mu.Unlock()

	token, err := c.renew(ctx, current.RefreshToken)
	return token, false, err
}

// renew performs the renewal call and settles every queued continuation
func (c *Coordinator) renew(ctx context.Context, refreshToken string) (string, error) {
	c.logger.Info("renewing access credential")

	// One caller's cancellation must not fail everyone queued behind it.
	ctx = context.WithoutCancel(ctx)
	pair, err := c.renewer.Renew(ctx, refreshToken)
	if err == nil && pair.AccessToken == "" {
		err = ErrMalformedRenewal
	}
	if err != nil {
		renewalErr := &RenewalError{Err: err}
		rejected := c.settle(func(cont Continuation) {
			cont.Reject(renewalErr)
		})
		c.logger.WithError(err).WithField("rejected", rejected).Warn("credential renewal failed")
		return "", renewalErr
	}

	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	c.store.Set(pair)

	resumed := c.settle(func(cont Continuation) {
		cont.Resolve(pair.AccessToken)
	})
	c.logger.WithField("resumed", resumed).Info("access credential renewed")

	c.mu.Lock()
	hook := c.onRenew
	c.mu.Unlock()
	if hook != nil {
		hook(ctx, pair)
	}

	return pair.AccessToken, nil
}

// settle resumes the queue in FIFO order, then returns to idle.
// The lock is held throughout so the flag and the queue change together.
func (c *Coordinator) settle(resume func(Continuation)) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.queue)
	for _, cont := range c.queue {
		resume(cont)
	}
	c.queue = nil
	c.refreshing = false
	return n
}
