// Package prompt fills {{name}} placeholders in a request body from the
// body's own "values" object before the call is forwarded.
package prompt

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// HeaderPromptFormat toggles formatting when present on the inbound call
const HeaderPromptFormat = "Llm0-Prompt-Format"

const valuesKey = "values"

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Formatter rewrites request bodies
type Formatter struct{}

// NewFormatter returns a Formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format replaces placeholders in "prompt" and in "messages[].content" with
// entries of the body's "values" object, then removes "values". Bodies without
// a "values" object are returned unchanged. Unknown placeholders are kept.
func (f *Formatter) Format(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return body, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("prompt format: body is not a JSON object: %w", err)
	}

	rawValues, ok := doc[valuesKey]
	if !ok {
		return body, nil
	}
	var rawMap map[string]any
	if err := json.Unmarshal(rawValues, &rawMap); err != nil {
		return nil, fmt.Errorf("prompt format: %q must be an object: %w", valuesKey, err)
	}
	values := make(map[string]string, len(rawMap))
	for k, v := range rawMap {
		if s, ok := v.(string); ok {
			values[k] = s
		} else {
			values[k] = fmt.Sprint(v)
		}
	}
	delete(doc, valuesKey)

	if raw, ok := doc["prompt"]; ok {
		filled, err := fillPrompt(raw, values)
		if err != nil {
			return nil, err
		}
		doc["prompt"] = filled
	}

	if raw, ok := doc["messages"]; ok {
		filled, err := fillMessages(raw, values)
		if err != nil {
			return nil, err
		}
		doc["messages"] = filled
	}

	return json.Marshal(doc)
}

// Fill substitutes placeholders in s
func Fill(s string, values map[string]string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := values[name]; ok {
			return v
		}
		return m
	})
}

func fillPrompt(raw json.RawMessage, values map[string]string) (json.RawMessage, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return json.Marshal(Fill(single, values))
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		// non-text prompts (token arrays) pass through untouched
		return raw, nil
	}
	for i := range many {
		many[i] = Fill(many[i], values)
	}
	return json.Marshal(many)
}

func fillMessages(raw json.RawMessage, values map[string]string) (json.RawMessage, error) {
	var messages []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("prompt format: messages must be an array of objects: %w", err)
	}

	for _, msg := range messages {
		content, ok := msg["content"]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(content, &text); err != nil {
			continue
		}
		filled, err := json.Marshal(Fill(text, values))
		if err != nil {
			return nil, err
		}
		msg["content"] = filled
	}

	return json.Marshal(messages)
}
