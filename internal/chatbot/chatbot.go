// Package chatbot answers campus questions. A local keyword FAQ handles
// the common cases for free; anything else goes to an OpenAI-compatible
// chat completion endpoint, and when that is unreachable the bot degrades
// to a canned reply instead of an error.
package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/neristhub/campushub/internal/config"
)

const systemPrompt = "You are a chatbot that answers NERIST-related questions. Answer politely even if unsure."

// unavailableReply is what callers see when the upstream model cannot be
// reached. Chat never returns an error to the client.
const unavailableReply = "AI service is temporarily unavailable."

type faqEntry struct {
	keywords []string
	answer   string
}

var campusFAQ = []faqEntry{
	{
		keywords: []string{"admission", "apply", "entrance"},
		answer:   "NERIST admissions are done through JEE Main and NERIST Entrance Exam depending on the course.",
	},
	{
		keywords: []string{"library", "timing"},
		answer:   "NERIST central library is open from 9 AM to 8 PM on working days.",
	},
	{
		keywords: []string{"hostel"},
		answer:   "NERIST has separate boys and girls hostels inside the campus.",
	},
	{
		keywords: []string{"physics lab"},
		answer:   "Physics lab is located in the Physics Building, South Campus.",
	},
}

// localAnswer scans the FAQ table for a keyword hit, first match wins.
func localAnswer(message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, faq := range campusFAQ {
		for _, keyword := range faq.keywords {
			if strings.Contains(lower, keyword) {
				return faq.answer, true
			}
		}
	}
	return "", false
}

// Bot answers chat messages.
type Bot struct {
	cfg    config.ChatbotConfig
	client *http.Client
	logger *slog.Logger
}

func New(cfg config.ChatbotConfig, logger *slog.Logger) *Bot {
	return &Bot{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Reply answers message. FAQ hits are answered locally; otherwise the
// upstream model is asked, and any failure there degrades to a canned
// reply. Reply never fails.
func (b *Bot) Reply(ctx context.Context, message string) string {
	if strings.TrimSpace(message) == "" {
		return "Please type a question."
	}

	if answer, ok := localAnswer(message); ok {
		return answer
	}

	if b.cfg.APIKey == "" {
		return unavailableReply
	}

	answer, err := b.complete(ctx, message)
	if err != nil {
		b.logger.Error("chatbot: upstream completion failed", "error", err)
		return unavailableReply
	}
	return answer
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

// complete calls the chat completions endpoint with short retries. Client
// errors (4xx) are not retried, they will not get better.
func (b *Bot) complete(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: b.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	var reply string
	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost,
				b.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)

			resp, err := b.client.Do(req)
			if err != nil {
				return fmt.Errorf("calling chat endpoint: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				return &upstreamError{status: resp.StatusCode, body: string(snippet)}
			}

			var parsed chatResponse
			if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}
			if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
				reply = "Sorry, I couldn't find that information."
				return nil
			}
			reply = parsed.Choices[0].Message.Content
			return nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var ue *upstreamError
			if errors.As(err, &ue) {
				return ue.status >= 500 || ue.status == http.StatusTooManyRequests
			}
			return true
		}),
	)
	if err != nil {
		return "", err
	}
	return reply, nil
}

type upstreamError struct {
	status int
	body   string
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("chat endpoint returned %d: %s", e.status, e.body)
}
