package asynclog

import (
	"encoding/json"
	"time"
)

// Reserved metadata keys
const (
	MetaRequestID = "Llm0-Request-Id"
	MetaUserID    = "Llm0-User-Id"
)

// Provider tags a submitted record with the kind of call it describes
type Provider string

const (
	ProviderCustom    Provider = "custom"
	ProviderOpenAI    Provider = "oai"
	ProviderAnthropic Provider = "anthropic"
)

// Valid reports whether p is a known provider tag
func (p Provider) Valid() bool {
	switch p {
	case ProviderCustom, ProviderOpenAI, ProviderAnthropic:
		return true
	}
	return false
}

// LogRecord is the ingestion payload for one externally executed call
type LogRecord struct {
	ProviderRequest  ProviderRequest  `json:"providerRequest"`
	ProviderResponse ProviderResponse `json:"providerResponse"`
	Timing           Timing           `json:"timing"`
}

type ProviderRequest struct {
	Body     json.RawMessage   `json:"json"`
	URL      string            `json:"url"`
	Metadata map[string]string `json:"meta"`
}

type ProviderResponse struct {
	Body       json.RawMessage   `json:"json"`
	StatusCode int               `json:"status"`
	Headers    map[string]string `json:"headers"`
}

type Timing struct {
	StartTime Timestamp `json:"startTime"`
	EndTime   Timestamp `json:"endTime"`
}

// Timestamp is an epoch-millisecond instant split into whole seconds and
// the millisecond remainder
type Timestamp struct {
	Seconds      int64 `json:"seconds"`
	Milliseconds int64 `json:"milliseconds"`
}

// SplitMillis decomposes v into {floor(v/1000), v mod 1000}
func SplitMillis(v int64) Timestamp {
	sec, ms := v/1000, v%1000
	if ms < 0 {
		sec--
		ms += 1000
	}
	return Timestamp{Seconds: sec, Milliseconds: ms}
}

// Millis recombines the timestamp into epoch milliseconds
func (t Timestamp) Millis() int64 {
	return t.Seconds*1000 + t.Milliseconds
}

// Time converts the timestamp to a time.Time
func (t Timestamp) Time() time.Time {
	return time.UnixMilli(t.Millis())
}
