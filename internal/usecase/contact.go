package usecase

import (
	"regexp"
	"strings"

	"portfolio-chat/internal/domain"
)

// contactMarkerPrefix is the single-line sentinel the model is instructed to
// emit once it has collected a visitor's name, phone, and message.
const contactMarkerPrefix = "CONTACT_REQUEST:"

// Three pipe-delimited groups: name and phone stop at the next pipe, the
// message runs to the end of the line.
var contactMarkerPattern = regexp.MustCompile(`CONTACT_REQUEST:(.+?)\|(.+?)\|(.+)`)

// Replacement texts for the client-visible reply. The raw marker must never
// reach the browser.
const (
	contactConfirmedReply = "Thank you! Your contact details have been passed along, and you can expect a reply as soon as possible."
	contactFailedReply    = "I'm sorry, I couldn't forward your contact request just now. Please reach out directly through the contact page instead."
)

// parseContactRequest extracts a ContactRequest from a model reply. Model
// output is untrusted semi-structured text, so parsing fails closed: anything
// that does not fully match is treated as a plain reply, never as a partial
// command.
func parseContactRequest(reply string) (domain.ContactRequest, bool) {
	if !strings.Contains(reply, contactMarkerPrefix) {
		return domain.ContactRequest{}, false
	}
	m := contactMarkerPattern.FindStringSubmatch(reply)
	if m == nil {
		return domain.ContactRequest{}, false
	}
	return domain.ContactRequest{
		Name:    strings.TrimSpace(m[1]),
		Phone:   strings.TrimSpace(m[2]),
		Message: strings.TrimSpace(m[3]),
	}, true
}
