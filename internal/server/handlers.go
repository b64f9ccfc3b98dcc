package server

import (
	"encoding/json"
	"net/http"

	"github.com/dvcrn/bank-api-client/internal/credentials"
)

type sessionResponse struct {
	Authenticated bool                   `json:"authenticated"`
	Principal     *credentials.Principal `json:"principal,omitempty"`
	State         string                 `json:"state"`
	ExpiresAt     int64                  `json:"expires_at,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{State: s.auth.State().String()}
	if cred := s.auth.Credential(r.Context()); cred != nil {
		resp.Authenticated = true
		resp.ExpiresAt = cred.ExpiresAt
		resp.Principal = s.auth.CurrentPrincipal(r.Context())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	principal, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.log.Warn().Err(err).Str("username", req.Username).Msg("Login failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		Principal:     principal,
		State:         s.auth.State().String(),
	})
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("Failed to clear session")
		http.Error(w, "Failed to clear session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getAccountHandler(w http.ResponseWriter, r *http.Request) {
	account, err := s.bank.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) listAccountsHandler(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.bank.ListAccounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) getCustomerHandler(w http.ResponseWriter, r *http.Request) {
	customer, err := s.bank.GetCustomer(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (s *Server) listCustomersHandler(w http.ResponseWriter, r *http.Request) {
	customers, err := s.bank.ListCustomers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}
