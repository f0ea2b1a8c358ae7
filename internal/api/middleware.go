package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/RichardoC/healthpad/internal/auth"
	"github.com/RichardoC/healthpad/internal/llm"
	"github.com/RichardoC/healthpad/internal/media"
	"github.com/RichardoC/healthpad/internal/models"
	"github.com/RichardoC/healthpad/internal/query"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type accountKey struct{}

func accountFrom(ctx context.Context) *models.Account {
	acc, _ := ctx.Value(accountKey{}).(*models.Account)
	return acc
}

// requireAuth resolves the bearer token before calling next.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			h.fail(w, r, auth.ErrInvalidToken)
			return
		}

		acc, err := h.gate.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, acc)))
	}
}

// CORSPolicy answers cross-origin requests from an allow-list. An entry of
// "*" allows every origin.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

func (p *CORSPolicy) allows(origin string) bool {
	for _, o := range p.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (p *CORSPolicy) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && p != nil && p.allows(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			if p.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Detail: detail})
}

// fail maps a domain error to its HTTP response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrUsernameTaken):
		writeError(w, http.StatusBadRequest, auth.ErrUsernameTaken.Error())
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, query.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, media.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "The model for this input type is not configured")
	case errors.Is(err, media.ErrFailed):
		h.logger.Error("media processing failed", zap.Error(err), zap.String("path", r.URL.Path))
		writeError(w, http.StatusInternalServerError, "Failed to process the uploaded media")
	case errors.Is(err, llm.ErrGeneration):
		writeError(w, http.StatusBadGateway, "Failed to generate a response")
	default:
		h.logger.Error("request failed", zap.Error(err), zap.String("path", r.URL.Path))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
