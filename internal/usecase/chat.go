package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"portfolio-chat/internal/domain"
	"portfolio-chat/internal/ratelimit"
)

const (
	defaultMaxRequests = 10
	defaultWindow      = time.Minute
)

// LLMClient generates a reply for a sanitized turn sequence under a system
// instruction.
type LLMClient interface {
	GenerateContent(ctx context.Context, model string, turns []domain.ChatMessage, systemInstruction string) (string, error)
}

// ModelSelector picks the provider model identifier for a request.
type ModelSelector interface {
	Model(ctx context.Context) string
}

// Notifier forwards a contact request to an out-of-band channel. It reports
// success or failure and never returns an error; notification failures are
// absorbed.
type Notifier interface {
	Notify(ctx context.Context, req domain.ContactRequest) bool
}

// ParamGetter reads a configuration parameter by name.
type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// credentialCoder is implemented by provider errors caused by a missing API
// key, so they can be told apart from ordinary upstream failures.
type credentialCoder interface {
	MissingCredential() bool
}

// ChatService orchestrates one chat request: rate-limit check, validation,
// prompt assembly, the provider call, contact-request extraction, and the
// final reply.
type ChatService struct {
	llm      LLMClient
	selector ModelSelector
	notifier Notifier
	limiter  ratelimit.Limiter
	log      *slog.Logger

	maxRequests int
	window      time.Duration

	params      ParamGetter
	paramPrefix string

	kbMu     sync.RWMutex
	kbLoaded bool
	kb       string
}

type ChatInput struct {
	ClientID string
	// Messages is nil when the request body had no messages field; an empty
	// non-nil slice is a present-but-empty conversation and is valid.
	Messages []domain.ChatMessage
}

type ChatOutput struct {
	Message   string
	RateLimit ratelimit.Result
}

type Option func(*ChatService)

// WithParamStore sources the knowledge-base document from the parameter
// store under prefix instead of the embedded default.
func WithParamStore(params ParamGetter, prefix string) Option {
	return func(s *ChatService) {
		s.params = params
		s.paramPrefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	}
}

// WithKnowledgeBase overrides the embedded knowledge-base document directly.
func WithKnowledgeBase(doc string) Option {
	return func(s *ChatService) {
		s.kb = doc
		s.kbLoaded = true
	}
}

// WithRateLimit overrides the default 10 requests / 60s policy.
func WithRateLimit(maxRequests int, window time.Duration) Option {
	return func(s *ChatService) {
		if maxRequests > 0 {
			s.maxRequests = maxRequests
		}
		if window > 0 {
			s.window = window
		}
	}
}

func NewChatService(llm LLMClient, selector ModelSelector, notifier Notifier, limiter ratelimit.Limiter, log *slog.Logger, opts ...Option) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if selector == nil {
		return nil, errors.New("usecase: model selector must not be nil")
	}
	if notifier == nil {
		return nil, errors.New("usecase: notifier must not be nil")
	}
	if limiter == nil {
		return nil, errors.New("usecase: rate limiter must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	s := &ChatService{
		llm:         llm,
		selector:    selector,
		notifier:    notifier,
		limiter:     limiter,
		log:         log,
		maxRequests: defaultMaxRequests,
		window:      defaultWindow,
		kb:          defaultKnowledgeBase,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.params == nil {
		s.kbLoaded = true
	}
	return s, nil
}

func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	log := s.log.With("request_id", uuid.NewString(), "client_id", in.ClientID)

	limit, err := s.limiter.Check(ctx, in.ClientID, s.maxRequests, s.window)
	if err != nil {
		// Fail open: a broken limiter store must not take chat down.
		log.Warn("rate limit check failed, allowing request", "err", err)
		limit = ratelimit.Result{
			Allowed:   true,
			Limit:     s.maxRequests,
			Remaining: s.maxRequests - 1,
			ResetTime: time.Now().Add(s.window),
		}
	}
	if !limit.Allowed {
		log.Info("rate limit exceeded", "retry_after", limit.RetryAfter)
		return ChatOutput{}, newRateLimitError(limit)
	}

	if in.Messages == nil {
		return ChatOutput{}, newError(ErrorInvalidInput, "missing_messages", nil)
	}

	kb, err := s.knowledgeBase(ctx)
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "knowledge_base_load_error", err)
	}

	turns := sanitizeConversation(in.Messages)
	model := s.selector.Model(ctx)

	reply, err := s.llm.GenerateContent(ctx, model, turns, buildSystemInstruction(kb))
	if err != nil {
		var cred credentialCoder
		switch {
		case errors.As(err, &cred) && cred.MissingCredential():
			return ChatOutput{}, newError(ErrorMissingCredential, "api_key_not_configured", err)
		case errors.Is(err, context.DeadlineExceeded):
			return ChatOutput{}, newError(ErrorUpstreamTimeout, "gemini_timeout", err)
		default:
			return ChatOutput{}, newError(ErrorUpstream, "gemini_error", err)
		}
	}

	if req, ok := parseContactRequest(reply); ok {
		if s.notifier.Notify(ctx, req) {
			log.Info("contact request forwarded", "name", req.Name)
			reply = contactConfirmedReply
		} else {
			log.Warn("contact request notification failed", "name", req.Name)
			reply = contactFailedReply
		}
	}

	return ChatOutput{Message: reply, RateLimit: limit}, nil
}

// knowledgeBase returns the document for prompt assembly, loading it from the
// parameter store on first use when one is configured. Load failures are not
// cached, so a transient store error is retried on the next request.
func (s *ChatService) knowledgeBase(ctx context.Context) (string, error) {
	s.kbMu.RLock()
	if s.kbLoaded {
		defer s.kbMu.RUnlock()
		return s.kb, nil
	}
	s.kbMu.RUnlock()

	s.kbMu.Lock()
	defer s.kbMu.Unlock()
	if s.kbLoaded {
		return s.kb, nil
	}

	doc, err := s.params.GetParameter(ctx, s.paramPrefix+"/knowledge_base")
	if err != nil {
		return "", err
	}
	s.kb = doc
	s.kbLoaded = true
	return s.kb, nil
}
