package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"portfolio-chat/internal/ratelimit"
	"portfolio-chat/internal/usecase"
)

type stubService struct {
	out usecase.ChatOutput
	err error

	callCount int
	lastInput usecase.ChatInput
}

func (s *stubService) Chat(_ context.Context, in usecase.ChatInput) (usecase.ChatOutput, error) {
	s.callCount++
	s.lastInput = in
	return s.out, s.err
}

func newTestHandler(t *testing.T, svc ChatService) *Handler {
	t.Helper()
	h, err := NewHandler(svc, nil)
	require.NoError(t, err)
	return h
}

func urlRequest(method, body string, headers map[string]string) events.LambdaFunctionURLRequest {
	req := events.LambdaFunctionURLRequest{
		Headers: headers,
		Body:    body,
	}
	req.RequestContext.HTTP.Method = method
	req.RequestContext.HTTP.SourceIP = "172.31.0.9"
	return req
}

func TestHandle_MethodNotAllowed(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	res, err := h.Handle(context.Background(), urlRequest(http.MethodGet, "", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
	require.JSONEq(t, `{"error":"Method not allowed"}`, res.Body)
	require.Equal(t, 0, svc.callCount)
}

func TestHandle_InvalidBody(t *testing.T) {
	for _, body := range []string{"", "nope", `{}`, `{"messages":"x"}`} {
		svc := &stubService{err: &usecase.Error{Code: usecase.ErrorInvalidInput}}
		h := newTestHandler(t, svc)

		res, err := h.Handle(context.Background(), urlRequest(http.MethodPost, body, nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, res.StatusCode, "body=%q", body)
		require.Equal(t, 1, svc.callCount, "body=%q", body)
		require.Nil(t, svc.lastInput.Messages, "body=%q", body)
	}
}

func TestHandle_RateLimitWinsOverInvalidBody(t *testing.T) {
	svc := &stubService{err: &usecase.Error{
		Code:      usecase.ErrorRateLimited,
		RateLimit: ratelimit.Result{Limit: 10, ResetTime: time.Now().Add(30 * time.Second), RetryAfter: 30},
	}}
	h := newTestHandler(t, svc)

	res, err := h.Handle(context.Background(), urlRequest(http.MethodPost, `{"messages":"x"`, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	require.Equal(t, "30", res.Headers["Retry-After"])
	require.Equal(t, 1, svc.callCount)
	require.Nil(t, svc.lastInput.Messages)
}

func TestHandle_Success(t *testing.T) {
	reset := time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC)
	svc := &stubService{out: usecase.ChatOutput{
		Message:   "Happy to help.",
		RateLimit: ratelimit.Result{Allowed: true, Limit: 10, Remaining: 4, ResetTime: reset},
	}}
	h := newTestHandler(t, svc)

	req := urlRequest(http.MethodPost, `{"messages":[{"role":"user","content":"hi there"}]}`, map[string]string{
		"x-forwarded-for": "1.2.3.4, 5.6.7.8",
	})
	res, err := h.Handle(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "application/json", res.Headers["Content-Type"])
	require.Equal(t, "10", res.Headers["X-RateLimit-Limit"])
	require.Equal(t, "4", res.Headers["X-RateLimit-Remaining"])

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.Body), &body))
	require.Equal(t, "Happy to help.", body["message"])
	require.Equal(t, "1.2.3.4", svc.lastInput.ClientID)
}

func TestHandle_Base64Body(t *testing.T) {
	svc := &stubService{out: usecase.ChatOutput{Message: "ok", RateLimit: ratelimit.Result{Limit: 10}}}
	h := newTestHandler(t, svc)

	req := urlRequest(http.MethodPost, base64.StdEncoding.EncodeToString([]byte(`{"messages":[]}`)), nil)
	req.IsBase64Encoded = true

	res, err := h.Handle(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, 1, svc.callCount)
}

func TestHandle_RateLimited(t *testing.T) {
	svc := &stubService{err: &usecase.Error{
		Code:      usecase.ErrorRateLimited,
		RateLimit: ratelimit.Result{Limit: 10, ResetTime: time.Now().Add(30 * time.Second), RetryAfter: 30},
	}}
	h := newTestHandler(t, svc)

	res, err := h.Handle(context.Background(), urlRequest(http.MethodPost, `{"messages":[]}`, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	require.Equal(t, "30", res.Headers["Retry-After"])
	require.Equal(t, "0", res.Headers["X-RateLimit-Remaining"])
}

func TestHandle_SourceIPFallback(t *testing.T) {
	svc := &stubService{out: usecase.ChatOutput{Message: "ok"}}
	h := newTestHandler(t, svc)

	_, err := h.Handle(context.Background(), urlRequest(http.MethodPost, `{"messages":[]}`, nil))
	require.NoError(t, err)
	require.Equal(t, "172.31.0.9", svc.lastInput.ClientID)
}
