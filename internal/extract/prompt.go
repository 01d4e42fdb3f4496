// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/template"

	"github.com/pdiddy/plasma-kg/internal/httputil"
	"github.com/pdiddy/plasma-kg/pkg/types"
)

// validationPromptTmpl is the prompt sent to the oracle for one abstract
// and one parameter kind. The pattern candidates are included so the
// oracle refines rather than starts from scratch, and the reply format is
// pinned to a bare JSON array.
var validationPromptTmpl = template.Must(template.New("validation").Parse(`Extract {{.Kind}} values from this scientific abstract.

Abstract: {{.Text}}

Instructions:
1. Find all {{.Kind}} measurements with their units
2. Include the context sentence for each value
3. Mark confidence as 'high' if explicitly stated, 'medium' if inferred, 'low' if uncertain

Regex found these (validate if correct):
{{.Candidates}}

Return ONLY valid JSON in this exact format (no markdown, no explanation):
[
  {"type": "{{.Kind}}", "value": <number>, "unit": "<unit>", "context": "<sentence with the measurement>", "confidence": "high|medium|low", "is_correct": true}
]

If no {{.Kind}} values found, return: []
`))

// validationPrompt renders the validation prompt for one kind.
func validationPrompt(text string, candidates []types.Measurement, kind types.ParameterKind) (string, error) {
	candJSON, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling candidates: %w", err)
	}

	var buf bytes.Buffer
	err = validationPromptTmpl.Execute(&buf, struct {
		Kind       string
		Text       string
		Candidates string
	}{
		Kind:       string(kind),
		Text:       text,
		Candidates: string(candJSON),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// openaiAPIBase is the OpenAI chat completions endpoint. Package-level
// var for test substitution.
var openaiAPIBase = "https://api.openai.com/v1/chat/completions"

// OpenAIBackend calls the OpenAI chat completions API. It implements
// Oracle for both measurement validation and query interpretation.
type OpenAIBackend struct {
	APIKey     string
	Model      string
	Client     *http.Client
	MaxRetries int
}

// Name identifies the backend in warnings and logs.
func (b *OpenAIBackend) Name() string {
	return "openai"
}

// chatRequest is the request body for the chat completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// chatMessage is a single message in the conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response body from the chat completions API.
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

// Complete sends one prompt and returns the model's reply text. Sampling
// temperature is pinned to zero so repeated runs extract the same facts.
// Rate-limit responses are retried with backoff before giving up.
func (b *OpenAIBackend) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: b.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiAPIBase, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.APIKey)

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, b.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding OpenAI response: %w", err)
	}

	if len(cResp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}

	return cResp.Choices[0].Message.Content, nil
}
