package handlers

import (
	"net/http"
	"strings"

	"github.com/mrmushfiq/llm0-observability-gateway/internal/shared/models"
)

// Inbound attribution headers
const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "Llm0-Request-Id"
	HeaderUserID        = "Llm0-User-Id"
	HeaderLegacyUserID  = "User-Id"
	HeaderPromptID      = "Llm0-Prompt-Id"
)

// Diagnostic headers added to every proxied response
const (
	HeaderStatus = "Llm0-Status"
	HeaderID     = "Llm0-Id"
	HeaderError  = "Llm0-Error"
	HeaderCache  = "Llm0-Cache"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const maxErrorHeaderLength = 512

// requestID returns the caller-supplied record id, or "" to let the store generate one
func requestID(h http.Header) string {
	return models.Truncate(h.Get(HeaderRequestID), models.MaxAttributionLength)
}

func userID(h http.Header) *string {
	if v := h.Get(HeaderUserID); v != "" {
		return models.OptionalHeader(v)
	}
	return models.OptionalHeader(h.Get(HeaderLegacyUserID))
}

func promptID(h http.Header) *string {
	return models.OptionalHeader(h.Get(HeaderPromptID))
}

// setDiagnostics writes the logging outcome headers
func setDiagnostics(h http.Header, id string, err error) {
	if err != nil {
		h.Set(HeaderStatus, StatusError)
		h.Set(HeaderError, headerSafe(err.Error()))
		h.Del(HeaderID)
		return
	}
	h.Set(HeaderStatus, StatusSuccess)
	h.Set(HeaderID, id)
	h.Del(HeaderError)
}

// headerSafe flattens s onto one line so it can travel in a header value
func headerSafe(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' || r < 0x20 {
			return ' '
		}
		return r
	}, s)
	return models.Truncate(s, maxErrorHeaderLength)
}
