package llmclient

import (
	"context"
	"encoding/json"
	"strings"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself; retries, rate limiting and
// logging are applied via middleware.
type GeminiClient struct {
	cli      *genai.Client
	model    string
	tokenCap int
}

func NewGeminiClient(ctx context.Context, apiKey, model string, tokenCap int) (*GeminiClient, error) {
	// NOTE: apiKey is currently unused here; the genai client may read it
	// from env. Keep the parameter for a consistent factory signature.
	_ = apiKey

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	if tokenCap <= 0 {
		tokenCap = 12000
	}
	return &GeminiClient{cli: cli, model: model, tokenCap: tokenCap}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }
func (g *GeminiClient) CountTokens(text string) int {
	return CountTokens(text)
}
func (g *GeminiClient) TokenCapacity() int { return g.tokenCap }

// GenerateJSON concatenates prompt and input, asks for application/json,
// and returns the model's JSON as json.RawMessage.
func (g *GeminiClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	full := prompt
	if input != nil {
		in, _ := json.MarshalIndent(input, "", "  ")
		full = prompt + "\n\n[INPUT JSON]\n" + string(in)
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, classifyAPIError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrInvalidJSON
	}
	txt := resp.Candidates[0].Content.Parts[0].Text
	return json.RawMessage(txt), nil
}

// classifyAPIError splits oracle failures into transient (overload, rate
// limit, server-side hiccups) and permanent ones so the retry middleware
// can tell them apart. Unknown errors are treated as transient.
func classifyAPIError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"overloaded", "rate limit", "rate_limit", "429", "503", "unavailable", "deadline"} {
		if strings.Contains(msg, marker) {
			return err
		}
	}
	for _, marker := range []string{"400", "401", "403", "404", "invalid argument", "api key", "not found"} {
		if strings.Contains(msg, marker) {
			return NewPermanentError(err)
		}
	}
	return err
}
