package domain

// Roles used across the inbound API and the Gemini wire format. The browser
// widget speaks user/assistant; Gemini expects user/model.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleModel     = "model"
)

// ChatMessage is a single conversation turn as the browser widget sends it,
// and (with the role remapped) as it is forwarded to the provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContactRequest is the structured contact inquiry parsed out of a model
// reply. It lives for one request cycle only: it triggers a notification and
// is then discarded.
type ContactRequest struct {
	Name    string
	Phone   string
	Message string
}
