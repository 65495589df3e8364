// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adjudicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// openaiAPIURL is the chat completions endpoint. Package-level var for test
// substitution.
var openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIBackend calls the OpenAI chat completions API with temperature 0 so
// repeated runs over the same documents stay comparable.
type OpenAIBackend struct {
	APIKey string
	Model  string
	Client *http.Client
}

// openaiRequest is the request body for the chat completions API.
type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

// openaiMessage is a single message in the conversation.
type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openaiResponse is the response body from the chat completions API.
type openaiResponse struct {
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
}

// Review sends the prompt and returns the raw completion text. Transport
// and API failures surface as ErrModelUnavailable so the pipeline can
// degrade without inspecting HTTP details.
func (b *OpenAIBackend) Review(ctx context.Context, prompt string) (string, error) {
	reqBody := openaiRequest{
		Model:       b.Model,
		Messages:    []openaiMessage{{Role: "user", Content: prompt}},
		MaxTokens:   512,
		Temperature: 0,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.APIKey)

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling model API: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: model API returned %d: %s", ErrModelUnavailable, resp.StatusCode, string(body))
	}

	var oResp openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrMalformedResponse, err)
	}
	if len(oResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}

	return oResp.Choices[0].Message.Content, nil
}
