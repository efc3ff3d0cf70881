package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"bookhive/internal/app"
	"bookhive/internal/util"
	"bookhive/pkg/auth"
	"bookhive/pkg/domain"
	"bookhive/pkg/store"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	MaxUploadBytes int64
}

// Server exposes the HTTP API.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	maxUploadBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 * 1024 * 1024
	}
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithCORS(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// registration and login
	s.mux.HandleFunc("/api/auth/register", s.handleRegister)
	s.mux.HandleFunc("/api/auth/verify-otp", s.handleVerifyOTP)
	s.mux.HandleFunc("/api/auth/resend-otp", s.handleResendOTP)
	s.mux.HandleFunc("/api/auth/sendOTP", s.handleSendResetOTP)
	s.mux.HandleFunc("/api/auth/reset-password", s.handleResetPassword)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/admin-login", s.handleAdminLogin)
	s.mux.Handle("/api/auth/", s.authenticated(s.handleWhoAmI))
	s.mux.Handle("/api/auth/admin", s.adminOnly(s.handleAdminCheck))

	// payments
	s.mux.Handle("/payment", s.authenticated(s.handleInitiatePayment))
	s.mux.HandleFunc("/payment/notification", s.handlePaymentNotification)

	// catalog
	s.mux.HandleFunc("/api/books", s.handleBooks)
	s.mux.HandleFunc("/api/books/", s.handleBookByID)
	s.mux.HandleFunc("/api/authors", s.handleAuthors)
	s.mux.HandleFunc("/api/authors/", s.handleAuthorByID)
	s.mux.HandleFunc("/api/categories", s.handleCategories)
	s.mux.HandleFunc("/api/categories/", s.handleCategoryByID)

	// ratings, reviews, shelves
	s.mux.Handle("/api/ratings", s.authenticated(s.handleRatings))
	s.mux.HandleFunc("/api/ratings/", s.handleRatingByPath)
	s.mux.Handle("/api/reviews", s.authenticated(s.handleReviews))
	s.mux.HandleFunc("/api/reviews/", s.handleReviewByPath)
	s.mux.Handle("/api/shelves", s.authenticated(s.handleShelves))
	s.mux.Handle("/api/shelves/", s.authenticated(s.handleShelfByBook))

	// accounts and entitlements
	s.mux.Handle("/api/users", s.adminOnly(s.handleListUsers))
	s.mux.Handle("/api/users/", s.authenticated(s.handleUserByID))
	s.mux.Handle("/api/subscription", s.authenticated(s.handleSubscription))
	s.mux.Handle("/api/purchase-book", s.authenticated(s.handleListPurchases))
	s.mux.Handle("/api/purchase-book/", s.authenticated(s.handleHasPurchased))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, domain.User)

// authenticated verifies the bearer token and resolves the calling user.
func (s *Server) authenticated(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.resolveUser(w, r)
		if !ok {
			return
		}
		next(w, r, user)
	})
}

// adminOnly is authenticated plus an admin-role check.
func (s *Server) adminOnly(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.resolveUser(w, r)
		if !ok {
			return
		}
		if user.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) resolveUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	token, ok := auth.BearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.User{}, false
	}
	userID, _, err := s.app.Tokens().Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.User{}, false
	}
	user, found, err := s.app.Store().GetUserByID(userID)
	if err != nil {
		s.writeAppError(w, r, err)
		return domain.User{}, false
	}
	if !found {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.User{}, false
	}
	return user, true
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeAppError maps application errors onto HTTP statuses. Internal causes
// are logged, never exposed.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, app.ErrConflict),
		errors.Is(err, app.ErrSamePassword),
		errors.Is(err, app.ErrDuplicateTransaction),
		errors.Is(err, store.ErrOTPNotFound),
		errors.Is(err, store.ErrOTPExpired),
		errors.Is(err, store.ErrOTPInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrAccessDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrUpstream):
		util.LoggerFromContext(r.Context()).Error("payment gateway failure", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "payment service unavailable")
	default:
		util.LoggerFromContext(r.Context()).Error("internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func listQuery(r *http.Request) app.ListQuery {
	q := app.ListQuery{Search: strings.TrimSpace(r.URL.Query().Get("search"))}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			q.Page = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			q.Limit = n
		}
	}
	return q
}
