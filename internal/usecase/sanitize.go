package usecase

import (
	"strings"
	"unicode/utf8"

	"portfolio-chat/internal/domain"
)

const (
	// maxForwardedMessages bounds how much history is sent upstream per call.
	maxForwardedMessages = 10

	// minContentLength drops one-character fragments, which in practice are
	// corrupted entries restored from the browser's local storage.
	minContentLength = 2

	fallbackGreeting = "Hello"
)

// clientErrorMarkers identify error messages the browser widget appends to
// the conversation on failures. Forwarding them would have the model reason
// over its own prior failures.
var clientErrorMarkers = []string{
	"Sorry, there was an error",
	"Request timeout",
}

// sanitizeConversation filters and normalizes the raw inbound history into
// the turn sequence sent to the provider: at most the last ten valid
// messages, roles remapped to the provider's user/model vocabulary. A fully
// filtered conversation becomes a single synthetic greeting so the provider
// never receives an empty turn sequence. Pure function of its input.
func sanitizeConversation(raw []domain.ChatMessage) []domain.ChatMessage {
	valid := make([]domain.ChatMessage, 0, len(raw))
	for _, m := range raw {
		content := strings.TrimSpace(m.Content)
		if m.Role == "" || content == "" {
			continue
		}
		if utf8.RuneCountInString(content) < minContentLength {
			continue
		}
		if containsClientError(content) {
			continue
		}
		role := domain.RoleUser
		if m.Role == domain.RoleAssistant {
			role = domain.RoleModel
		}
		valid = append(valid, domain.ChatMessage{Role: role, Content: content})
	}

	if len(valid) > maxForwardedMessages {
		valid = valid[len(valid)-maxForwardedMessages:]
	}
	if len(valid) == 0 {
		return []domain.ChatMessage{{Role: domain.RoleUser, Content: fallbackGreeting}}
	}
	return valid
}

func containsClientError(content string) bool {
	for _, marker := range clientErrorMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}
