// Package handler adapts Lambda Function URL events to the chat service,
// answering with the same statuses, headers, and bodies as the HTTP surface.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"portfolio-chat/internal/clientid"
	"portfolio-chat/internal/domain"
	"portfolio-chat/internal/httpapi"
	"portfolio-chat/internal/usecase"
)

// ChatService is the single operation the adapter needs from the usecase
// layer.
type ChatService interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type Handler struct {
	svc ChatService
	log *slog.Logger
}

func NewHandler(svc ChatService, log *slog.Logger) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: chat service must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}, nil
}

type chatRequest struct {
	Messages *[]domain.ChatMessage `json:"messages"`
}

type chatResponse struct {
	Message string `json:"message"`
}

// Handle processes one Function URL invocation. It never returns an error to
// the runtime; every failure becomes a JSON error response.
func (h *Handler) Handle(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	if req.RequestContext.HTTP.Method != http.MethodPost {
		return respond(http.StatusMethodNotAllowed, nil, httpapi.ErrorPayload{Error: "Method not allowed"}), nil
	}

	in := usecase.ChatInput{ClientID: clientid.FromMap(req.Headers, req.RequestContext.HTTP.SourceIP)}
	// A malformed body still goes through the service: the rate limit is
	// consulted before validation, so an over-limit client gets 429 even for
	// garbage input. Nil Messages is rejected after the check.
	if body, err := requestBody(req); err == nil {
		var parsed chatRequest
		if err := json.Unmarshal(body, &parsed); err == nil && parsed.Messages != nil {
			in.Messages = *parsed.Messages
		}
	}

	out, err := h.svc.Chat(ctx, in)
	if err != nil {
		status, payload, headers := httpapi.MapError(err)
		if status == http.StatusInternalServerError {
			h.log.Error("chat request failed", "err", err)
		}
		return respond(status, headers, payload), nil
	}

	return respond(http.StatusOK, httpapi.RateLimitHeaders(out.RateLimit), chatResponse{Message: out.Message}), nil
}

func requestBody(req events.LambdaFunctionURLRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	return base64.StdEncoding.DecodeString(req.Body)
}

func respond(status int, headers map[string]string, body any) events.LambdaFunctionURLResponse {
	encoded, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		encoded = []byte(`{"error":"An error occurred while processing your request."}`)
	}
	all := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		all[k] = v
	}
	return events.LambdaFunctionURLResponse{
		StatusCode: status,
		Headers:    all,
		Body:       string(encoded),
	}
}
