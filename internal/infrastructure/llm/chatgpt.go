package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"PressWatch/internal/config"
	"PressWatch/internal/domain"
	"PressWatch/internal/ports"
)

const outputContract = `Reply with JSON only, no code fences and no commentary:
{"summaryText": "...", "glossary": [{"term": "...", "reading": "...", "description": "..."}]}`

// ChatGPTSummarizer implements ports.Summarizer backed by OpenAI-compatible chat completion APIs.
type ChatGPTSummarizer struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	temperature  float64
	maxTokens    int
	httpClient   *http.Client
}

var _ ports.Summarizer = (*ChatGPTSummarizer)(nil)

// NewChatGPTSummarizer builds a client from configuration.
func NewChatGPTSummarizer(cfg config.OpenAIConfig) *ChatGPTSummarizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatGPTSummarizer{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type summaryPayload struct {
	SummaryText string                 `json:"summaryText"`
	Glossary    []domain.GlossaryEntry `json:"glossary"`
}

// Summarize asks the model for a short factual summary plus a glossary of technical terms.
func (c *ChatGPTSummarizer) Summarize(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error) {
	if c == nil {
		return domain.Summary{}, fmt.Errorf("chatgpt summarizer is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.Summary{}, fmt.Errorf("chatgpt summarizer: %w", domain.ErrMisconfigured)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: safePrompt(c.systemPrompt) + "\n\n" + outputContract},
			{Role: "user", Content: buildPrompt(req)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return domain.Summary{}, fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Summary{}, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("send summarize request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Summary{}, fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Summary{}, fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return domain.Summary{}, fmt.Errorf("chatgpt returned an empty completion")
	}

	return parseSummary(decoded.Choices[0].Message.Content)
}

func parseSummary(content string) (domain.Summary, error) {
	content = stripFence(content)

	var payload summaryPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return domain.Summary{}, fmt.Errorf("parse summary json: %w", err)
	}

	glossary := make([]domain.GlossaryEntry, 0, len(payload.Glossary))
	for _, g := range payload.Glossary {
		g.Term = strings.TrimSpace(g.Term)
		g.Description = strings.TrimSpace(g.Description)
		g.Reading = strings.TrimSpace(g.Reading)
		if g.Term == "" || g.Description == "" {
			continue
		}
		glossary = append(glossary, g)
	}

	return domain.Summary{
		Text:     strings.TrimSpace(payload.SummaryText),
		Glossary: glossary,
	}, nil
}

// stripFence tolerates models that wrap the JSON in a markdown code block anyway.
func stripFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimPrefix(content, "json")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

func buildPrompt(req domain.SummaryRequest) string {
	published := req.PublishedAt
	if published == "" {
		published = "unknown"
	}

	var b strings.Builder
	b.WriteString("Summarize the following press release in 3 to 6 factual lines and list technical terms.\n\n")
	fmt.Fprintf(&b, "Company: %s\n", req.SourceName)
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	fmt.Fprintf(&b, "Published: %s\n", published)
	fmt.Fprintf(&b, "URL: %s\n\n", req.URL)
	b.WriteString("### Body\n")
	b.WriteString(req.Body)
	return b.String()
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a helpful assistant that summarizes corporate press releases."
	}
	return prompt
}
