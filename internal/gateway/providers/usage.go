package providers

import (
	"encoding/json"

	"github.com/sashabaranov/go-openai"
)

// usageEnvelope picks the fields shared by OpenAI-compatible completion bodies
type usageEnvelope struct {
	Model string        `json:"model"`
	Usage *openai.Usage `json:"usage"`
}

// ParseUsage extracts model and token usage from a completion response body.
// ok is false when the body carries no usage block.
func ParseUsage(body []byte) (model string, usage openai.Usage, ok bool) {
	var env usageEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Usage == nil {
		return "", openai.Usage{}, false
	}
	return env.Model, *env.Usage, true
}
