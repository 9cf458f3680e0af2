package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"PressWatch/internal/config"
	"PressWatch/internal/domain"
)

func completion(content string) string {
	raw, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(raw)
}

func TestSummarizeParsesCompletion(t *testing.T) {
	t.Parallel()

	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		content := "```json\n" + `{"summaryText":" New chip announced. ","glossary":[{"term":"SoC","reading":"","description":"System on chip"},{"term":"","description":"dropped"}]}` + "\n```"
		_, _ = w.Write([]byte(completion(content)))
	}))
	defer srv.Close()

	s := NewChatGPTSummarizer(config.OpenAIConfig{Endpoint: srv.URL, Model: "gpt-test", APIKey: "sk-test", MaxTokens: 600})
	summary, err := s.Summarize(context.Background(), domain.SummaryRequest{
		Title:      "New chip",
		SourceName: "Example Corp.",
		URL:        "https://example.com/press/1",
		Body:       "Example Corp. announced a new chip.",
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if summary.Text != "New chip announced." {
		t.Fatalf("unexpected summary %q", summary.Text)
	}
	if len(summary.Glossary) != 1 || summary.Glossary[0].Term != "SoC" {
		t.Fatalf("unexpected glossary %+v", summary.Glossary)
	}
	if got.Model != "gpt-test" || len(got.Messages) != 2 {
		t.Fatalf("unexpected request %+v", got)
	}
	if !strings.Contains(got.Messages[1].Content, "Published: unknown") {
		t.Fatalf("expected unknown publish date in prompt, got %q", got.Messages[1].Content)
	}
}

func TestSummarizeHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewChatGPTSummarizer(config.OpenAIConfig{Endpoint: srv.URL, Model: "m", APIKey: "k"})
	if _, err := s.Summarize(context.Background(), domain.SummaryRequest{}); err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected 429 error, got %v", err)
	}
}

func TestSummarizeRejectsNonJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completion("Sorry, I cannot help with that.")))
	}))
	defer srv.Close()

	s := NewChatGPTSummarizer(config.OpenAIConfig{Endpoint: srv.URL, Model: "m", APIKey: "k"})
	if _, err := s.Summarize(context.Background(), domain.SummaryRequest{}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSummarizeMisconfigured(t *testing.T) {
	t.Parallel()

	s := NewChatGPTSummarizer(config.OpenAIConfig{})
	if _, err := s.Summarize(context.Background(), domain.SummaryRequest{}); !errors.Is(err, domain.ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
}
