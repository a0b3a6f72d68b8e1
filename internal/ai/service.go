// Package ai rewrites journal notes through a hosted text-generation API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Rewrite modes.
const (
	ModeSummary = "summary"
	ModeTitle   = "title"
)

const summaryPrompt = `You are a warm food journaling assistant. Summarize the following personal food note in 1-2 sentences. Keep the first-person voice, highlight feelings, textures, and standout bites. Avoid generic phrases.

NOTE:
%s
`

const titlePrompt = `You are a creative copywriter. Craft one playful, romantic headline (max 6 words) for the following food memory.

If a place name is provided, feel free to weave it in naturally.

NOTE:
%s

PLACE (optional):
%s
`

// ErrNoteRequired is returned when the note is empty after trimming.
var ErrNoteRequired = errors.New("note is required")

// ErrInvalidMode is returned for modes other than summary or title.
var ErrInvalidMode = errors.New("invalid rewrite mode")

// ErrNotConfigured is returned when no provider API key is set.
var ErrNotConfigured = errors.New("no AI provider configured")

// Service calls an OpenAI-compatible chat completions endpoint.
type Service struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewService creates an ai Service for the given provider endpoint.
func NewService(baseURL, apiKey, model string) *Service {
	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
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

// Rewrite generates a summary or a headline for the note. placeName is only
// used in title mode and may be empty.
func (s *Service) Rewrite(ctx context.Context, note, placeName, mode string) (string, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return "", ErrNoteRequired
	}
	if s.apiKey == "" {
		return "", ErrNotConfigured
	}

	var prompt string
	switch mode {
	case ModeSummary:
		prompt = fmt.Sprintf(summaryPrompt, note)
	case ModeTitle:
		place := strings.TrimSpace(placeName)
		if place == "" {
			place = "Unknown place"
		}
		prompt = fmt.Sprintf(titlePrompt, note, place)
	default:
		return "", ErrInvalidMode
	}

	body, err := json.Marshal(chatRequest{
		Model:    s.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call completion api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion api returned status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("completion api returned no choices")
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
