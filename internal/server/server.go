package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dvcrn/bank-api-client/internal/app"
	"github.com/dvcrn/bank-api-client/internal/auth"
	"github.com/dvcrn/bank-api-client/internal/bank"
	"github.com/dvcrn/bank-api-client/internal/credentials"
	"github.com/dvcrn/bank-api-client/internal/logger"
)

// Server is the local gateway in front of the bank API. It holds one session
// and exposes it to local tools over plain HTTP.
type Server struct {
	auth            *auth.Client
	bank            *bank.Service
	store           credentials.Store
	adminKey        string
	refreshInterval time.Duration
	refreshSkew     time.Duration
	mux             *http.ServeMux
	log             zerolog.Logger
}

// NewServer creates a gateway over the wired client stack.
func NewServer(a *app.App) *Server {
	s := &Server{
		auth:            a.Auth,
		bank:            a.Bank,
		store:           a.Store,
		adminKey:        a.Config.AdminAPIKey,
		refreshInterval: a.Config.RefreshInterval,
		refreshSkew:     a.Config.RefreshSkew,
		mux:             http.NewServeMux(),
		log:             logger.For("server"),
	}
	s.setupRoutes()
	return s
}

// Start checks the stored session, starts the periodic refresh and serves on
// addr until ctx ends.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.CheckSession(ctx)
	s.auth.StartRefreshLoop(ctx, s.refreshInterval, s.refreshSkew)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info().Msgf("Starting gateway on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// CheckSession logs whether a usable session is stored and how long its
// credential remains valid.
func (s *Server) CheckSession(ctx context.Context) {
	cred := s.auth.Credential(ctx)
	if cred == nil {
		s.log.Warn().Str("store", s.store.Name()).Msg("No stored session; log in or POST /admin/credentials before calling the bank API")
		return
	}

	ev := s.log.Info().Str("store", s.store.Name())
	if p := s.auth.CurrentPrincipal(ctx); p != nil {
		ev = ev.Str("username", p.Username)
	}
	if exp, ok := cred.Expiry(); ok {
		ev = ev.Dur("valid_for", time.Until(exp).Round(time.Second))
	}
	ev.Msg("Loaded stored session")
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /session", s.sessionHandler)
	s.mux.HandleFunc("POST /session/login", s.loginHandler)
	s.mux.HandleFunc("POST /session/logout", s.logoutHandler)

	s.mux.HandleFunc("GET /v1/accounts", s.listAccountsHandler)
	s.mux.HandleFunc("GET /v1/accounts/{id}", s.getAccountHandler)
	s.mux.HandleFunc("GET /v1/customers", s.listCustomersHandler)
	s.mux.HandleFunc("GET /v1/customers/{id}", s.getCustomerHandler)

	s.mux.HandleFunc("POST /admin/credentials", s.adminMiddleware(s.credentialsHandler))
	s.mux.HandleFunc("GET /admin/credentials/status", s.adminMiddleware(s.credentialsStatusHandler))
	s.mux.HandleFunc("POST /admin/credentials/refresh", s.adminMiddleware(s.refreshHandler))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	loggingMiddleware(s.mux).ServeHTTP(w, r)
}
