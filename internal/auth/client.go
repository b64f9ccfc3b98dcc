// Package auth attaches the session credential to outgoing requests and
// recovers from expired credentials with a single shared refresh.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvcrn/bank-api-client/internal/apierr"
	"github.com/dvcrn/bank-api-client/internal/credentials"
	"github.com/dvcrn/bank-api-client/internal/executor"
	"github.com/dvcrn/bank-api-client/internal/logger"
)

// maxAuthRetries is how many times one request may be resent after an
// Unauthorized response.
const maxAuthRetries = 1

// Default endpoint paths, relative to the base URL.
const (
	DefaultLoginPath   = "/auth/login"
	DefaultRefreshPath = "/auth/refresh"
	DefaultMePath      = "/auth/me"
)

// Client decorates requests with the session credential and owns the refresh
// coordinator.
type Client struct {
	baseURL     string
	sender      executor.Sender
	coord       *coordinator
	public      publicMatcher
	loginPath   string
	refreshPath string
	mePath      string
	log         zerolog.Logger
}

type options struct {
	baseURL        string
	publicPaths    []string
	refreshTimeout time.Duration
	loginPath      string
	refreshPath    string
	mePath         string
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL sets the URL relative paths are resolved against.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithPublicPaths replaces the patterns of endpoints sent without a credential.
func WithPublicPaths(paths ...string) Option {
	return func(o *options) { o.publicPaths = paths }
}

// WithRefreshTimeout bounds the refresh call.
func WithRefreshTimeout(d time.Duration) Option {
	return func(o *options) { o.refreshTimeout = d }
}

// WithEndpoints overrides the login, refresh and current-user paths. Empty
// values keep the defaults.
func WithEndpoints(login, refresh, me string) Option {
	return func(o *options) {
		if login != "" {
			o.loginPath = login
		}
		if refresh != "" {
			o.refreshPath = refresh
		}
		if me != "" {
			o.mePath = me
		}
	}
}

// NewClient creates a Client sending through sender and persisting the
// session in store.
func NewClient(sender executor.Sender, store credentials.Store, opts ...Option) *Client {
	o := options{
		publicPaths:    []string{DefaultLoginPath, "/auth/register"},
		refreshTimeout: 10 * time.Second,
		loginPath:      DefaultLoginPath,
		refreshPath:    DefaultRefreshPath,
		mePath:         DefaultMePath,
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		baseURL:     o.baseURL,
		sender:      sender,
		public:      newPublicMatcher(o.publicPaths),
		loginPath:   o.loginPath,
		refreshPath: o.refreshPath,
		mePath:      o.mePath,
		log:         logger.For("auth"),
	}
	c.coord = newCoordinator(store, c.refreshCredential, c.replay, o.refreshTimeout, logger.For("refresh"))
	return c
}

// URL resolves path against the base URL.
func (c *Client) URL(path string) string {
	if c.baseURL == "" {
		return path
	}
	return executor.JoinURL(c.baseURL, path)
}

// IsPublic reports whether target is sent without a credential.
func (c *Client) IsPublic(target string) bool {
	return c.public.match(target)
}

// Decorate returns a copy of req carrying the current bearer credential,
// unless req targets a public endpoint.
func (c *Client) Decorate(ctx context.Context, req *executor.Request) *executor.Request {
	if c.IsPublic(req.URL) {
		return req.Clone()
	}
	return c.decorateWith(req, c.coord.credential(ctx))
}

func (c *Client) decorateWith(req *executor.Request, cred *credentials.Credential) *executor.Request {
	out := req.Clone()
	if cred.Valid() && !c.IsPublic(req.URL) {
		out.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	}
	return out
}

// Execute sends req with the session credential. An Unauthorized response is
// recovered through one shared refresh and a single resend; a second
// Unauthorized ends the session with AuthExpired.
func (c *Client) Execute(ctx context.Context, req *executor.Request) (*executor.Response, error) {
	if c.IsPublic(req.URL) {
		return c.sender.Send(ctx, req.Clone())
	}

	cred := c.coord.credential(ctx)
	for attempt := 0; ; attempt++ {
		resp, err := c.sender.Send(ctx, c.decorateWith(req, cred))
		if !apierr.Is(err, apierr.Unauthorized) {
			return resp, err
		}
		if attempt >= maxAuthRetries {
			return nil, c.rejectedAfterRefresh(ctx, err)
		}

		out := c.coord.unauthorized(ctx, req, cred)
		switch {
		case out.err != nil:
			return nil, out.err
		case out.replayed:
			return out.resp, out.err
		}
		cred = out.retry
	}
}

// replay re-sends a queued request with the refreshed credential. It counts
// as that request's single retry.
func (c *Client) replay(ctx context.Context, req *executor.Request, cred *credentials.Credential, sending func()) (*executor.Response, error) {
	decorated := c.decorateWith(req, cred)
	sending()
	resp, err := c.sender.Send(ctx, decorated)
	if apierr.Is(err, apierr.Unauthorized) {
		return nil, c.rejectedAfterRefresh(ctx, err)
	}
	return resp, err
}

// rejectedAfterRefresh ends the session: the server refused a credential it
// had just issued.
func (c *Client) rejectedAfterRefresh(ctx context.Context, cause error) error {
	c.log.Warn().Err(cause).Msg("Credential rejected after refresh, ending session")
	if err := c.coord.end(context.WithoutCancel(ctx), EventExpired); err != nil {
		c.log.Warn().Err(err).Msg("Failed to clear credential store")
	}
	return apierr.Expired(cause)
}

// refreshCredential performs the refresh call. It goes straight to the sender,
// never through Execute, so a rejected refresh cannot recurse.
func (c *Client) refreshCredential(ctx context.Context, stale *credentials.Credential) (*credentials.Credential, *credentials.Principal, error) {
	var body any
	if stale.RefreshToken != "" {
		body = map[string]string{"refresh_token": stale.RefreshToken}
	}
	req, err := executor.NewRequest(http.MethodPost, c.URL(c.refreshPath), body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+stale.AccessToken)

	resp, err := c.sender.Send(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	var tokens credentials.TokenResponse
	if err := executor.DecodeJSON(resp, &tokens); err != nil {
		return nil, nil, err
	}
	return tokens.Credential(stale, time.Now()), tokens.User, nil
}

// Login exchanges a username and password for a session.
func (c *Client) Login(ctx context.Context, username, password string) (*credentials.Principal, error) {
	req, err := executor.NewRequest(http.MethodPost, c.URL(c.loginPath), map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.sender.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	var tokens credentials.TokenResponse
	if err := executor.DecodeJSON(resp, &tokens); err != nil {
		return nil, err
	}
	cred := tokens.Credential(nil, time.Now())
	if !cred.Valid() {
		return nil, apierr.New(apierr.DecodeError, "login response carried no access token")
	}

	if err := c.coord.establish(ctx, cred, tokens.User, EventLoggedIn); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	c.log.Info().Str("username", username).Msg("Logged in")

	if tokens.User != nil {
		return tokens.User, nil
	}
	principal, err := c.CurrentUser(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("Logged in but could not load the current user")
		return nil, nil
	}
	return principal, nil
}

// Restore installs a credential obtained elsewhere, such as an admin import.
func (c *Client) Restore(ctx context.Context, cred *credentials.Credential, principal *credentials.Principal) error {
	if !cred.Valid() {
		return errors.New("credential has no access token")
	}
	cred = cred.Clone()
	if cred.ExpiresAt == 0 {
		if exp, ok := credentials.ExpiryHint(cred.AccessToken); ok {
			cred.ExpiresAt = exp.Unix()
		}
	}
	return c.coord.establish(ctx, cred, principal, EventLoggedIn)
}

// Logout clears the session locally.
func (c *Client) Logout(ctx context.Context) error {
	c.log.Info().Msg("Logging out")
	return c.coord.end(ctx, EventLoggedOut)
}

// CurrentUser loads the principal for the current credential and caches it.
func (c *Client) CurrentUser(ctx context.Context) (*credentials.Principal, error) {
	req, err := executor.NewRequest(http.MethodGet, c.URL(c.mePath), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	var principal credentials.Principal
	if err := executor.DecodeJSON(resp, &principal); err != nil {
		return nil, err
	}
	if err := c.coord.updatePrincipal(ctx, &principal); err != nil {
		c.log.Warn().Err(err).Msg("Failed to cache current user")
	}
	return &principal, nil
}

// Refresh forces a credential refresh through the shared single-flight path.
func (c *Client) Refresh(ctx context.Context) error {
	return c.coord.forceRefresh(ctx)
}

// IsAuthenticated reports whether a usable credential is held.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	return c.coord.credential(ctx) != nil
}

// CurrentPrincipal returns the cached identity, nil when not authenticated.
func (c *Client) CurrentPrincipal(ctx context.Context) *credentials.Principal {
	return c.coord.currentPrincipal(ctx)
}

// Credential returns a copy of the current credential, nil when not
// authenticated.
func (c *Client) Credential(ctx context.Context) *credentials.Credential {
	return c.coord.credential(ctx)
}

// State returns the refresh state.
func (c *Client) State() RefreshState {
	return c.coord.currentState()
}

// Subscribe delivers authentication state changes until the returned func is
// called.
func (c *Client) Subscribe() (<-chan Event, func()) {
	return c.coord.subscribe()
}
