package asynclog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
)

var (
	// ErrResponseNotAttached is returned by Finalize before AttachResponse
	ErrResponseNotAttached = errors.New("asynclog: response not yet attached")
	// ErrResponseAlreadyAttached is returned by a second AttachResponse
	ErrResponseAlreadyAttached = errors.New("asynclog: response already attached")
)

// RequestBody describes the call the SDK user executed
type RequestBody struct {
	Model            string                         `json:"model"`
	Provider         string                         `json:"provider,omitempty"`
	Prompt           string                         `json:"prompt,omitempty"`
	Messages         []openai.ChatCompletionMessage `json:"messages,omitempty"`
	MaxTokens        *int                           `json:"max_tokens,omitempty"`
	Temperature      *float32                       `json:"temperature,omitempty"`
	TopP             *float32                       `json:"top_p,omitempty"`
	N                *int                           `json:"n,omitempty"`
	Stream           bool                           `json:"stream,omitempty"`
	Logprobs         *int                           `json:"logprobs,omitempty"`
	Stop             []string                       `json:"stop,omitempty"`
	PresencePenalty  *float32                       `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float32                       `json:"frequency_penalty,omitempty"`
	BestOf           *int                           `json:"best_of,omitempty"`
	LogitBias        map[string]int                 `json:"logit_bias,omitempty"`
	Meta             map[string]any                 `json:"meta,omitempty"`
}

// Response is the outcome of the call: a ResponseBody or a ResponseError
type Response interface {
	isResponse()
}

// Usage is token accounting for a completion
type Usage struct {
	TotalTokens      int `json:"total_tokens"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ResponseBody is a successful completion
type ResponseBody struct {
	Text           string         `json:"text"`
	Usage          *Usage         `json:"usage,omitempty"`
	Index          *int           `json:"index,omitempty"`
	FinishReason   string         `json:"finish_reason,omitempty"`
	Logprobs       map[string]any `json:"logprobs,omitempty"`
	ChosenLogprobs map[string]any `json:"chosen_logprobs,omitempty"`
	Tokens         []string       `json:"tokens,omitempty"`
	TokenLogprobs  []float64      `json:"token_logprobs,omitempty"`
	TextOffset     []int          `json:"text_offset,omitempty"`
	Context        string         `json:"context,omitempty"`
	Model          string         `json:"model,omitempty"`
	Meta           map[string]any `json:"meta,omitempty"`
}

// ResponseError is a failed call
type ResponseError struct {
	Error  string         `json:"error"`
	Status *int           `json:"status,omitempty"`
	Body   map[string]any `json:"body,omitempty"`
}

func (ResponseBody) isResponse()  {}
func (ResponseError) isResponse() {}

// Option configures a LogBuilder
type Option func(*LogBuilder)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(b *LogBuilder) { b.now = now }
}

// WithIDGenerator overrides the record id source
func WithIDGenerator(gen func() string) Option {
	return func(b *LogBuilder) { b.newID = gen }
}

// WithURL records the provider URL the call was sent to
func WithURL(url string) Option {
	return func(b *LogBuilder) { b.url = url }
}

// LogBuilder accumulates one externally executed call into a LogRecord.
// A builder produces exactly one record; the response can be attached once.
type LogBuilder struct {
	id      string
	request RequestBody
	url     string

	start    time.Time
	end      time.Time
	response Response

	meta  map[string]string
	now   func() time.Time
	newID func() string
}

// NewLogBuilder starts timing the call described by req
func NewLogBuilder(req RequestBody, opts ...Option) *LogBuilder {
	b := &LogBuilder{
		request: req,
		meta:    make(map[string]string),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.start = b.now()
	b.id = b.newID()
	return b
}

// ID is the record's correlation key
func (b *LogBuilder) ID() string {
	return b.id
}

// AttachResponse stores the call outcome and stops the clock. It fails
// with ErrResponseAlreadyAttached if a response is already present; the
// first response and end time are kept.
func (b *LogBuilder) AttachResponse(resp Response) error {
	if resp == nil {
		return errors.New("asynclog: nil response")
	}
	if b.response != nil {
		return ErrResponseAlreadyAttached
	}
	b.response = resp
	b.end = b.now()
	return nil
}

// AttachUser attributes the call to an end user
func (b *LogBuilder) AttachUser(userID string) *LogBuilder {
	b.meta[MetaUserID] = userID
	return b
}

// AttachMetadata adds a caller-defined metadata entry. The record id key
// cannot be overridden.
func (b *LogBuilder) AttachMetadata(key, value string) *LogBuilder {
	b.meta[key] = value
	return b
}

// Finalize produces the LogRecord
func (b *LogBuilder) Finalize() (LogRecord, error) {
	if b.response == nil {
		return LogRecord{}, ErrResponseNotAttached
	}

	reqBody, err := json.Marshal(b.request)
	if err != nil {
		return LogRecord{}, fmt.Errorf("asynclog: encode request: %w", err)
	}
	respBody, err := modelTagged(b.response, b.request.Model)
	if err != nil {
		return LogRecord{}, err
	}

	return LogRecord{
		ProviderRequest: ProviderRequest{
			Body:     reqBody,
			URL:      b.url,
			Metadata: b.metadata(),
		},
		ProviderResponse: ProviderResponse{
			Body:       respBody,
			StatusCode: statusOf(b.response),
			Headers:    map[string]string{},
		},
		Timing: Timing{
			StartTime: SplitMillis(b.start.UnixMilli()),
			EndTime:   SplitMillis(b.end.UnixMilli()),
		},
	}, nil
}

func (b *LogBuilder) metadata() map[string]string {
	out := make(map[string]string, len(b.meta)+1)
	for k, v := range b.meta {
		out[k] = v
	}
	// written last so caller entries never replace it
	out[MetaRequestID] = b.id
	return out
}

// modelTagged encodes resp with "model" set to the request's model
func modelTagged(resp Response, model string) (json.RawMessage, error) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("asynclog: encode response: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("asynclog: encode response: %w", err)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage, 1)
	}
	m, err := json.Marshal(model)
	if err != nil {
		return nil, err
	}
	fields["model"] = m
	return json.Marshal(fields)
}

// statusOf reports a failed call's own status when it carries one
func statusOf(resp Response) int {
	if e, ok := resp.(ResponseError); ok && e.Status != nil {
		return *e.Status
	}
	return http.StatusOK
}
