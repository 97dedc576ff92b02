// Package httpapi exposes the chat service over HTTP and owns the mapping
// from usecase errors to statuses, bodies, and rate-limit headers. The
// Lambda adapter reuses the same mapping so both hosting surfaces answer
// identically.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"portfolio-chat/internal/clientid"
	"portfolio-chat/internal/domain"
	"portfolio-chat/internal/ratelimit"
	"portfolio-chat/internal/usecase"
)

// ChatService is the single operation the handler needs from the usecase
// layer.
type ChatService interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

// Handler serves POST /api/chat.
type Handler struct {
	svc ChatService
	log *slog.Logger
}

func NewHandler(svc ChatService, log *slog.Logger) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("httpapi: chat service must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}, nil
}

type chatRequest struct {
	// A pointer distinguishes a missing messages field from an empty
	// conversation.
	Messages *[]domain.ChatMessage `json:"messages"`
}

type chatResponse struct {
	Message string `json:"message"`
}

// ErrorPayload is the JSON error body shared by both hosting surfaces.
type ErrorPayload struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
	ResetTime  string `json:"resetTime,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, nil, ErrorPayload{Error: "Method not allowed"})
		return
	}

	in := usecase.ChatInput{ClientID: clientid.FromRequest(r)}
	// A malformed body still goes through the service: the rate limit is
	// consulted before validation, so an over-limit client gets 429 even for
	// garbage input. Nil Messages is rejected after the check.
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Messages != nil {
		in.Messages = *req.Messages
	}

	out, err := h.svc.Chat(r.Context(), in)
	if err != nil {
		status, payload, headers := MapError(err)
		if status == http.StatusInternalServerError {
			h.log.Error("chat request failed", "err", err)
		}
		writeJSON(w, status, headers, payload)
		return
	}

	writeJSON(w, http.StatusOK, RateLimitHeaders(out.RateLimit), chatResponse{Message: out.Message})
}

// MapError converts a usecase error into the HTTP status, body, and headers
// of the response.
func MapError(err error) (int, ErrorPayload, map[string]string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, ErrorPayload{Error: "An error occurred while processing your request."}, nil
	}

	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, ErrorPayload{Error: "Invalid request format"}, nil
	case usecase.ErrorRateLimited:
		res := ucErr.RateLimit
		headers := RateLimitHeaders(res)
		headers["Retry-After"] = strconv.Itoa(res.RetryAfter)
		headers["X-RateLimit-Remaining"] = "0"
		return http.StatusTooManyRequests, ErrorPayload{
			Error:      "Rate limit exceeded. Please try again later.",
			RetryAfter: res.RetryAfter,
			ResetTime:  res.ResetTime.UTC().Format(time.RFC3339),
		}, headers
	case usecase.ErrorMissingCredential:
		return http.StatusInternalServerError, ErrorPayload{Error: "API key not configured. Please set GEMINI_API_KEY in environment variables."}, nil
	case usecase.ErrorUpstreamTimeout:
		return http.StatusInternalServerError, ErrorPayload{Error: "The AI service took too long to respond. Please try again."}, nil
	default:
		msg := "An error occurred while processing your request."
		if ucErr.Err != nil {
			msg = ucErr.Err.Error()
		}
		return http.StatusInternalServerError, ErrorPayload{Error: msg}, nil
	}
}

// RateLimitHeaders returns the X-RateLimit-* headers for a check result.
// Reset is the window end in Unix milliseconds, mirroring what the browser
// widget already parses.
func RateLimitHeaders(res ratelimit.Result) map[string]string {
	return map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(res.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(res.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(res.ResetTime.UnixMilli(), 10),
	}
}

func writeJSON(w http.ResponseWriter, status int, headers map[string]string, body any) {
	w.Header().Set("Content-Type", "application/json")
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
