// Package advisor proxies chat, summarization and notice generation to a
// Groq-compatible chat-completions API. It owns prompt construction and
// response parsing; callers only see the generated text.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// IsConfigured returns true if an API key is set.
func (c *Client) IsConfigured() bool {
	return c.cfg.APIKey != ""
}

// ProviderLabel is the provider string reported by the health endpoint.
func (c *Client) ProviderLabel() string {
	return "Groq (" + c.cfg.Model + ")"
}

const systemPrompt = `You are a legal AI assistant for LawChain AI.
You help with:
1. Legal document summaries
2. Legal notice generation
3. Case analysis and insights
4. Legal questions and guidance

Maintain professional tone and cite relevant laws when applicable.`

// Chat answers a free-form legal query. caseContext carries the rendered
// case summary when the caller tied the question to a case; extraContext is
// caller-supplied free text. Either may be empty.
func (c *Client) Chat(ctx context.Context, message, caseContext, extraContext string) (string, error) {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	if caseContext != "" {
		fmt.Fprintf(&b, "Context: %s\n\n", caseContext)
	}
	if extraContext != "" {
		fmt.Fprintf(&b, "Additional Context: %s\n\n", extraContext)
	}
	fmt.Fprintf(&b, "User Query: %s", message)

	return c.complete(ctx, b.String())
}

// Summarize produces a concise summary of a legal document body.
func (c *Client) Summarize(ctx context.Context, documentText string) (string, error) {
	prompt := fmt.Sprintf(`Summarize this legal document clearly and concisely.
Highlight key points, parties involved, and important clauses:

%s`, documentText)

	return c.complete(ctx, prompt)
}

// GenerateNotice drafts a legal notice for the given parties and issue.
func (c *Client) GenerateNotice(ctx context.Context, caseType, partyFrom, partyTo, issue string) (string, error) {
	prompt := fmt.Sprintf(`Generate a professional legal notice template for:
Case Type: %s
From: %s
To: %s
Issue: %s

Include proper legal formatting, professional language, and relevant legal clauses.`,
		caseType, partyFrom, partyTo, issue)

	return c.complete(ctx, prompt)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("ai provider not configured")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call ai provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("ai provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode ai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("ai response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
