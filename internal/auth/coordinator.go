package auth

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvcrn/bank-api-client/internal/apierr"
	"github.com/dvcrn/bank-api-client/internal/credentials"
	"github.com/dvcrn/bank-api-client/internal/executor"
)

// RefreshState is the coordinator's position in the refresh state machine:
// Idle -> Refreshing -> Idle on success, Refreshing -> Failed on failure,
// Failed -> Idle on the next login.
type RefreshState int

const (
	Idle RefreshState = iota
	Refreshing
	Failed
)

func (s RefreshState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// storeTimeout bounds store I/O done outside any caller's context.
const storeTimeout = 5 * time.Second

type refreshFunc func(ctx context.Context, stale *credentials.Credential) (*credentials.Credential, *credentials.Principal, error)

// replayFunc re-sends req with cred. It calls sending right before the request
// is handed to the transport.
type replayFunc func(ctx context.Context, req *executor.Request, cred *credentials.Credential, sending func()) (*executor.Response, error)

// pendingRequest is a caller that hit Unauthorized while a refresh was in
// flight. The leader replays it once the refresh settles.
type pendingRequest struct {
	id  string
	ctx context.Context
	req *executor.Request
	// done is buffered so the leader never blocks on a waiter that left.
	done chan replayResult
	// dispatched is set under the coordinator lock once the leader has taken
	// the request out of the queue.
	dispatched bool
}

type replayResult struct {
	resp *executor.Response
	err  error
}

// flight is the single in-progress refresh. Only the caller that created it
// reaches the refresh endpoint.
type flight struct {
	done chan struct{}
	cred *credentials.Credential
	err  error
}

// outcome tells Execute what to do after an Unauthorized response.
type outcome struct {
	// retry is the credential to resend with when the caller should retry
	// itself.
	retry *credentials.Credential
	// replayed is set when the leader already re-sent the request.
	replayed bool
	resp     *executor.Response
	err      error
}

// coordinator owns the session: the cached credential and principal, the
// refresh state, the waiter queue and the subscribers. Every field below mu
// is guarded by it.
type coordinator struct {
	store   credentials.Store
	refresh refreshFunc
	replay  replayFunc
	timeout time.Duration
	log     zerolog.Logger

	// onDispatch observes replay dispatch order.
	onDispatch func(id string)

	mu        sync.Mutex
	loaded    bool
	state     RefreshState
	cred      *credentials.Credential
	principal *credentials.Principal
	// generation changes whenever the session is replaced from outside a
	// refresh, so a refresh started against an older session does not
	// overwrite a newer login.
	generation uint64
	queue      []*pendingRequest
	flight     *flight
	subs       map[int]chan Event
	nextSub    int
}

func newCoordinator(store credentials.Store, refresh refreshFunc, replay replayFunc, timeout time.Duration, log zerolog.Logger) *coordinator {
	return &coordinator{
		store:   store,
		refresh: refresh,
		replay:  replay,
		timeout: timeout,
		log:     log,
		subs:    make(map[int]chan Event),
	}
}

// loadLocked pulls the persisted session on first use.
func (c *coordinator) loadLocked(ctx context.Context) {
	if c.loaded {
		return
	}
	cred, principal, err := c.store.Get(ctx)
	if err != nil {
		c.log.Warn().Err(err).Str("store", c.store.Name()).Msg("Failed to load stored session")
		return
	}
	c.cred, c.principal, c.loaded = cred, principal, true
}

// credential returns a copy of the current credential, nil when there is
// none or the session has failed.
func (c *coordinator) credential(ctx context.Context) *credentials.Credential {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked(ctx)
	if c.state == Failed || !c.cred.Valid() {
		return nil
	}
	cp := *c.cred
	return &cp
}

func (c *coordinator) currentPrincipal(ctx context.Context) *credentials.Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked(ctx)
	if c.state == Failed || !c.cred.Valid() || c.principal == nil {
		return nil
	}
	cp := *c.principal
	return &cp
}

func (c *coordinator) currentState() RefreshState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *coordinator) queued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *coordinator) queueIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, len(c.queue))
	for i, p := range c.queue {
		ids[i] = p.id
	}
	return ids
}

// unauthorized decides how a caller that was rejected with used proceeds:
// retry with a newer credential, wait in the queue for a replay, or lead a
// refresh itself.
func (c *coordinator) unauthorized(ctx context.Context, req *executor.Request, used *credentials.Credential) outcome {
	c.mu.Lock()
	c.loadLocked(ctx)

	switch c.state {
	case Failed:
		c.mu.Unlock()
		return outcome{err: apierr.Expired(errors.New("session is not active"))}

	case Refreshing:
		p := &pendingRequest{
			id:   uuid.NewString(),
			ctx:  ctx,
			req:  req,
			done: make(chan replayResult, 1),
		}
		c.queue = append(c.queue, p)
		c.log.Debug().Str("pending_id", p.id).Int("queued", len(c.queue)).Msg("Refresh in flight, request queued")
		c.mu.Unlock()
		return c.wait(ctx, p)
	}

	if !c.cred.Valid() {
		c.mu.Unlock()
		return outcome{err: apierr.Expired(errors.New("no credential to refresh"))}
	}

	// A refresh finished between this caller's send and its 401.
	if used == nil || used.AccessToken != c.cred.AccessToken {
		cp := *c.cred
		c.mu.Unlock()
		return outcome{retry: &cp}
	}

	f := c.startRefreshLocked()
	c.mu.Unlock()

	select {
	case <-f.done:
	case <-ctx.Done():
		return outcome{err: apierr.FromContext(ctx)}
	}
	if f.err != nil {
		return outcome{err: f.err}
	}
	return outcome{retry: f.cred}
}

// wait suspends a queued caller until the leader resolves it. A caller that
// gives up before dispatch leaves the queue without touching anyone else.
func (c *coordinator) wait(ctx context.Context, p *pendingRequest) outcome {
	select {
	case r := <-p.done:
		return outcome{replayed: true, resp: r.resp, err: r.err}
	case <-ctx.Done():
	}

	c.mu.Lock()
	if !p.dispatched {
		c.queue = slices.DeleteFunc(c.queue, func(q *pendingRequest) bool { return q == p })
		c.mu.Unlock()
		c.log.Debug().Str("pending_id", p.id).Msg("Queued request cancelled")
		return outcome{err: apierr.FromContext(ctx)}
	}
	c.mu.Unlock()

	// Already handed to the leader; its replay runs on ctx and ends promptly.
	r := <-p.done
	return outcome{replayed: true, resp: r.resp, err: r.err}
}

// startRefreshLocked performs the Idle -> Refreshing transition. Callers hold mu.
func (c *coordinator) startRefreshLocked() *flight {
	f := &flight{done: make(chan struct{})}
	c.flight = f
	c.state = Refreshing
	stale := *c.cred
	gen := c.generation
	c.log.Info().Msg("Credential rejected, refreshing")
	go c.runRefresh(f, &stale, gen)
	return f
}

// runRefresh calls the refresh endpoint detached from any caller's context so
// a caller giving up cannot fail the refresh for everyone else.
func (c *coordinator) runRefresh(f *flight, stale *credentials.Credential, gen uint64) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	cred, principal, err := c.refresh(ctx, stale)
	cancel()

	storeCtx, storeCancel := context.WithTimeout(context.Background(), storeTimeout)
	defer storeCancel()

	c.mu.Lock()
	if err == nil && !cred.Valid() {
		err = apierr.New(apierr.DecodeError, "refresh response carried no access token")
	}
	switch {
	case gen != c.generation:
		// The session was replaced while refreshing; the newer one wins and
		// the refresh result is discarded.
		if c.state == Refreshing {
			c.state = Idle
		}
		if c.state == Idle && c.cred.Valid() {
			cp := *c.cred
			cred, err = &cp, nil
		} else {
			err = apierr.Expired(errors.New("session ended during refresh"))
		}
	case err == nil:
		if principal == nil {
			principal = c.principal
		}
		if storeErr := c.store.Set(storeCtx, cred, principal); storeErr != nil {
			c.log.Warn().Err(storeErr).Str("store", c.store.Name()).Msg("Failed to save refreshed credential")
		}
		c.cred, c.principal = cred, principal
		c.state = Idle
		c.emitLocked(EventRefreshed, principal)
	default:
		c.state = Failed
		c.cred, c.principal = nil, nil
		if clearErr := c.store.Clear(storeCtx); clearErr != nil {
			c.log.Warn().Err(clearErr).Str("store", c.store.Name()).Msg("Failed to clear credential store")
		}
		c.generation++
		c.emitLocked(EventExpired, nil)
	}

	queue := c.queue
	c.queue = nil
	for _, p := range queue {
		p.dispatched = true
	}
	c.flight = nil
	c.mu.Unlock()

	if err != nil {
		if !apierr.Is(err, apierr.AuthExpired) {
			err = apierr.Expired(err)
		}
		c.log.Warn().Err(err).Int("queued", len(queue)).Dur("duration", time.Since(start)).Msg("Credential refresh failed")
		f.err = err
		for _, p := range queue {
			p.done <- replayResult{err: err}
		}
		close(f.done)
		return
	}

	c.log.Info().Int("queued", len(queue)).Dur("duration", time.Since(start)).Msg("Credential refreshed")
	fresh := *cred
	f.cred = &fresh
	// Replays run concurrently but reach the transport in enqueue order: each
	// one waits until its predecessor is sending.
	turn := make(chan struct{})
	close(turn)
	for _, p := range queue {
		if c.onDispatch != nil {
			c.onDispatch(p.id)
		}
		replayCred := fresh
		next := make(chan struct{})
		go func(p *pendingRequest, turn <-chan struct{}, next chan struct{}) {
			var once sync.Once
			release := func() { once.Do(func() { close(next) }) }
			defer release()

			<-turn
			resp, err := c.replay(p.ctx, p.req, &replayCred, release)
			p.done <- replayResult{resp: resp, err: err}
		}(p, turn, next)
		turn = next
	}
	close(f.done)
}

// forceRefresh runs or joins a refresh regardless of expiry.
func (c *coordinator) forceRefresh(ctx context.Context) error {
	c.mu.Lock()
	c.loadLocked(ctx)
	var f *flight
	switch {
	case c.state == Refreshing:
		f = c.flight
	case c.state == Failed || !c.cred.Valid():
		c.mu.Unlock()
		return apierr.Expired(errors.New("no active session to refresh"))
	default:
		f = c.startRefreshLocked()
	}
	c.mu.Unlock()

	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return apierr.FromContext(ctx)
	}
}

// establish installs a session obtained outside the refresh path (login or
// restore) and leaves Failed.
func (c *coordinator) establish(ctx context.Context, cred *credentials.Credential, principal *credentials.Principal, event EventType) error {
	cred, principal = cred.Clone(), principal.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Set(ctx, cred, principal); err != nil {
		return err
	}
	c.loaded = true
	c.cred, c.principal = cred, principal
	c.generation++
	if c.state == Failed {
		c.state = Idle
	}
	c.emitLocked(event, principal)
	return nil
}

// updatePrincipal replaces the cached principal for the current credential.
func (c *coordinator) updatePrincipal(ctx context.Context, principal *credentials.Principal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cred.Valid() {
		return nil
	}
	principal = principal.Clone()
	if err := c.store.Set(ctx, c.cred, principal); err != nil {
		return err
	}
	c.principal = principal
	return nil
}

// end clears the session. Expiry moves to Failed; logout returns to Idle.
func (c *coordinator) end(ctx context.Context, event EventType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	had := c.cred.Valid()
	err := c.store.Clear(ctx)
	c.loaded = true
	c.cred, c.principal = nil, nil
	c.generation++
	switch {
	case event == EventExpired:
		c.state = Failed
	case c.state != Refreshing:
		c.state = Idle
	}
	if had || event == EventLoggedOut {
		c.emitLocked(event, nil)
	}
	return err
}
