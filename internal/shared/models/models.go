package models

import (
	"encoding/json"
	"time"
)

// MaxAttributionLength bounds caller-supplied ids (request, user, prompt)
const MaxAttributionLength = 128

// RequestRecord is the persisted outbound half of one logical call
type RequestRecord struct {
	ID               string
	Path             string
	Body             json.RawMessage
	CredentialDigest string
	UserID           *string
	PromptID         *string
	CreatedAt        time.Time
}

// ResponseRecord is the persisted provider reply, 1:1 with a RequestRecord
type ResponseRecord struct {
	ID        string
	RequestID string
	Body      json.RawMessage
	Status    int
	CreatedAt time.Time
}

// JSONBody normalizes a raw payload for storage. An empty payload becomes
// an empty object and anything that is not valid JSON is kept as a JSON string.
func JSONBody(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	if json.Valid(raw) {
		out := make(json.RawMessage, len(raw))
		copy(out, raw)
		return out
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}

// Truncate cuts s to at most max runes
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// OptionalHeader returns a truncated copy of v, or nil when v is empty
func OptionalHeader(v string) *string {
	if v == "" {
		return nil
	}
	t := Truncate(v, MaxAttributionLength)
	return &t
}
