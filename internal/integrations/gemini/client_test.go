package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"portfolio-chat/internal/domain"
)

type fakeGetter struct {
	val    string
	err    error
	onCall func()
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	if f.onCall != nil {
		f.onCall()
	}
	return f.val, f.err
}

func candidateBody(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + encodeJSON(text) + `}]}}]}`
}

func encodeJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func turns(contents ...string) []domain.ChatMessage {
	var out []domain.ChatMessage
	for _, c := range contents {
		out = append(out, domain.ChatMessage{Role: "user", Content: c})
	}
	return out
}

func TestGenerateContent_RequestShape(t *testing.T) {
	var captured generateRequest
	var capturedPath, capturedKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(candidateBody("hi there")))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	text, err := c.GenerateContent(context.Background(), "", []domain.ChatMessage{
		{Role: "user", Content: "hello"},
		{Role: "model", Content: "hi"},
	}, "SYSTEM DOC")
	require.NoError(t, err)
	require.Equal(t, "hi there", text)

	require.Equal(t, "/models/gemini-1.5-flash:generateContent", capturedPath)
	require.Equal(t, "test-key", capturedKey)
	require.Len(t, captured.Contents, 2)
	require.Equal(t, "user", captured.Contents[0].Role)
	require.Equal(t, "hello", captured.Contents[0].Parts[0].Text)
	require.Equal(t, "model", captured.Contents[1].Role)
	require.Equal(t, "SYSTEM DOC", captured.SystemInstruction.Parts[0].Text)
	require.InDelta(t, 0.7, captured.GenerationConfig.Temperature, 1e-9)
	require.Equal(t, 40, captured.GenerationConfig.TopK)
	require.InDelta(t, 0.95, captured.GenerationConfig.TopP, 1e-9)
	require.Equal(t, 1024, captured.GenerationConfig.MaxOutputTokens)
}

func TestGenerateContent_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.GenerateContent(context.Background(), "gemini-1.5-flash", turns("hello"), "doc")
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	require.NotContains(t, statusErr.URL, "key=", "credential must not leak into errors")
}

func TestGenerateContent_NoCandidates(t *testing.T) {
	cases := []string{
		`{}`,
		`{"candidates":[]}`,
		`{"candidates":[{"content":{"parts":[]}}]}`,
		`{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`,
	}
	for _, body := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		c := NewClient("test-key", WithBaseURL(srv.URL))
		_, err := c.GenerateContent(context.Background(), "gemini-1.5-flash", turns("hello"), "doc")
		require.Error(t, err, "body=%s", body)
		srv.Close()
	}
}

func TestGenerateContent_MissingKey(t *testing.T) {
	c := NewClient("")
	_, err := c.GenerateContent(context.Background(), "gemini-1.5-flash", turns("hello"), "doc")
	require.Error(t, err)

	var mk MissingKeyError
	require.ErrorAs(t, err, &mk)
	require.True(t, mk.MissingCredential())
}

func TestResolveAPIKey_EnvWinsOverParamStore(t *testing.T) {
	calls := 0
	g := &fakeGetter{val: "ssm-key", onCall: func() { calls++ }}
	c := NewClient("env-key", WithParamStore(g, "/portfolio-chat/gemini_api_key"))

	key, err := c.resolveAPIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "env-key", key)
	require.Equal(t, 0, calls)
}

func TestResolveAPIKey_ParamStoreFetchedOnce(t *testing.T) {
	calls := 0
	g := &fakeGetter{val: "ssm-key", onCall: func() { calls++ }}
	c := NewClient("", WithParamStore(g, "/portfolio-chat/gemini_api_key"))

	for i := 0; i < 3; i++ {
		key, err := c.resolveAPIKey(context.Background())
		require.NoError(t, err)
		require.Equal(t, "ssm-key", key)
	}
	require.Equal(t, 1, calls, "paramstore must only be called once per process lifetime")
}

func TestResolveAPIKey_ParamStoreError(t *testing.T) {
	g := &fakeGetter{err: errors.New("access denied")}
	c := NewClient("", WithParamStore(g, "/portfolio-chat/gemini_api_key"))

	_, err := c.resolveAPIKey(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "paramstore")
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"models/gemini-1.5-flash","supportedGenerationMethods":["generateContent"]}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	require.Equal(t, "models/gemini-1.5-flash", models[0].Name)
}
