// Package httpapi exposes the kiosk authentication HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akovalyov/kiosk-auth/internal/errs"
	"github.com/akovalyov/kiosk-auth/internal/lockout"
	"github.com/akovalyov/kiosk-auth/internal/service"
	"github.com/akovalyov/kiosk-auth/internal/strength"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Server wires the auth service into HTTP handlers.
type Server struct {
	auth service.AuthService
	log  *zap.Logger
	now  func() time.Time
}

// New constructs an HTTP API server with injected dependencies.
func New(auth service.AuthService, log *zap.Logger, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}
	return &Server{auth: auth, log: log, now: now}
}

// Router assembles the route tree with logging and panic recovery.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(Recover(s.log), Logging(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/accounts", s.handleEnroll)
		r.Route("/accounts/{key}", func(r chi.Router) {
			r.Post("/authenticate", s.handleAuthenticate)
			r.Put("/pin", s.handleReEnroll)
			r.Get("/session", s.handleSession)
		})
	})
	return r
}

type enrollRequest struct {
	DeviceKey string `json:"device_key"`
	PIN       string `json:"pin"`
}

type enrollResponse struct {
	AccountID string `json:"account_id"`
}

type authRequest struct {
	PIN string `json:"pin"`
}

type authResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type sessionResponse struct {
	Valid bool `json:"valid"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if req.DeviceKey == "" {
		writeError(w, http.StatusBadRequest, "device_key required")
		return
	}
	id, err := s.auth.Enroll(r.Context(), req.DeviceKey, req.PIN)
	if err != nil {
		s.writeEnrollError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, enrollResponse{AccountID: id})
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	sess, acct, err := s.auth.Authenticate(r.Context(), key, req.PIN)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrUnauthorized):
			// Covers both "wrong PIN" and "no such account".
			writeError(w, http.StatusUnauthorized, "bad credentials")
		case errors.Is(err, errs.ErrAccountLocked):
			if d := lockout.RetryAfter(acct, s.now()); d > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(d.Seconds()+0.5)))
			}
			writeError(w, http.StatusLocked, "account locked")
		case errors.Is(err, errs.ErrVersionConflict):
			writeError(w, http.StatusConflict, "concurrent attempt, retry")
		default:
			s.log.Error("authenticate", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal")
		}
		return
	}
	writeJSON(w, http.StatusOK, authResponse{AccessToken: sess.AccessToken, ExpiresAt: sess.ExpiresAt})
}

func (s *Server) handleReEnroll(w http.ResponseWriter, r *http.Request) {
	if _, err := s.bearerSubject(r); err != nil {
		writeError(w, http.StatusUnauthorized, "no auth")
		return
	}
	key := chi.URLParam(r, "key")
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if err := s.auth.ReEnroll(r.Context(), key, req.PIN); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		s.writeEnrollError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if _, err := s.bearerSubject(r); err != nil {
		writeError(w, http.StatusUnauthorized, "no auth")
		return
	}
	key := chi.URLParam(r, "key")
	valid, err := s.auth.CheckSession(r.Context(), key)
	if err != nil {
		s.log.Error("check session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Valid: valid})
}

// writeEnrollError maps PIN rejections: structural problems are client errors,
// policy problems are unprocessable. The reason string is one of four coarse
// categories and never names the specific weak-pattern rule.
func (s *Server) writeEnrollError(w http.ResponseWriter, err error) {
	var rej *service.RejectionError
	switch {
	case errors.As(err, &rej):
		code := http.StatusUnprocessableEntity
		if rej.Reason == strength.Missing || rej.Reason == strength.NotNumeric {
			code = http.StatusBadRequest
		}
		writeError(w, code, "pin "+rej.Reason.String())
	case errors.Is(err, errs.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "device key taken")
	default:
		s.log.Error("enroll", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
	}
}

// bearerSubject extracts "Authorization: Bearer <JWT>" and verifies it.
func (s *Server) bearerSubject(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", errs.ErrUnauthorized
	}
	id, err := s.auth.ValidateToken(strings.TrimPrefix(h, prefix))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
