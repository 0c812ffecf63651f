// Package insight is the optional text-generation collaborator used by the
// run comparator. It speaks the OpenAI chat-completions protocol; callers
// must treat every error as a signal to use their deterministic fallback.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ifrs17/internal/config"
)

// Request carries the structured change summary the narrative is built from.
type Request struct {
	ValueID          string   `json:"value_id"`
	Label            string   `json:"label"`
	CurrentValue     string   `json:"current_value"`
	PriorValue       string   `json:"prior_value"`
	AbsoluteChange   string   `json:"absolute_change"`
	PercentageChange string   `json:"percentage_change"`
	Direction        string   `json:"direction"`
	Magnitude        string   `json:"magnitude"`
	Drivers          []string `json:"drivers"`
}

type Generator interface {
	Narrative(ctx context.Context, req Request) (string, error)
}

type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	HTTP *http.Client
}

func NewClient(cfg config.InsightConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

const systemPrompt = "You are an IFRS 17 reporting analyst. Given a change " +
	"between two report runs, write a short factual narrative (2-3 sentences) " +
	"explaining the movement and its likely drivers. Do not speculate beyond " +
	"the listed drivers."

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) Narrative(ctx context.Context, req Request) (string, error) {
	if c == nil {
		return "", errors.New("insight: nil client")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return "", errors.New("insight: api key is empty")
	}

	user, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	body, _ := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(user)},
		},
		Temperature: 0.2,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("insight: http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("insight: empty response")
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("insight: empty narrative")
	}
	return text, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}
