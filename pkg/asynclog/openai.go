package asynclog

import "github.com/sashabaranov/go-openai"

// RequestFromChat describes a go-openai chat completion request
func RequestFromChat(req openai.ChatCompletionRequest) RequestBody {
	body := RequestBody{
		Model:    req.Model,
		Provider: "openai",
		Messages: req.Messages,
		Stream:   req.Stream,
		Stop:     req.Stop,
	}
	if req.MaxTokens > 0 {
		n := req.MaxTokens
		body.MaxTokens = &n
	}
	if req.Temperature != 0 {
		v := req.Temperature
		body.Temperature = &v
	}
	if req.TopP != 0 {
		v := req.TopP
		body.TopP = &v
	}
	if req.N > 0 {
		n := req.N
		body.N = &n
	}
	if req.PresencePenalty != 0 {
		v := req.PresencePenalty
		body.PresencePenalty = &v
	}
	if req.FrequencyPenalty != 0 {
		v := req.FrequencyPenalty
		body.FrequencyPenalty = &v
	}
	if len(req.LogitBias) > 0 {
		body.LogitBias = req.LogitBias
	}
	return body
}

// ResponseFromChat reduces a go-openai chat completion to the first choice
func ResponseFromChat(resp openai.ChatCompletionResponse) ResponseBody {
	out := ResponseBody{
		Model: resp.Model,
		Usage: &Usage{
			TotalTokens:      resp.Usage.TotalTokens,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		idx := choice.Index
		out.Text = choice.Message.Content
		out.Index = &idx
		out.FinishReason = string(choice.FinishReason)
	}
	return out
}
