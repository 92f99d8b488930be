package chatbot

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/neristhub/campushub/internal/config"
)

func testBot(baseURL, apiKey string) *Bot {
	return New(config.ChatbotConfig{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, slog.New(slog.DiscardHandler))
}

func TestReply_LocalFAQ(t *testing.T) {
	bot := testBot("http://unused", "")

	tests := []struct {
		message string
		want    string
	}{
		{"What are the LIBRARY timings?", "NERIST central library is open from 9 AM to 8 PM on working days."},
		{"how do I apply for admission", "NERIST admissions are done through JEE Main and NERIST Entrance Exam depending on the course."},
		{"is there a hostel?", "NERIST has separate boys and girls hostels inside the campus."},
		{"where is the physics lab", "Physics lab is located in the Physics Building, South Campus."},
	}
	for _, tt := range tests {
		if got := bot.Reply(context.Background(), tt.message); got != tt.want {
			t.Errorf("Reply(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestReply_EmptyMessage(t *testing.T) {
	bot := testBot("http://unused", "")

	if got := bot.Reply(context.Background(), "   "); got != "Please type a question." {
		t.Errorf("Reply(blank) = %q", got)
	}
}

func TestReply_NoAPIKey(t *testing.T) {
	bot := testBot("http://unused", "")

	if got := bot.Reply(context.Background(), "something off-table"); got != unavailableReply {
		t.Errorf("Reply() without key = %q, want the canned reply", got)
	}
}

func TestReply_Upstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("upstream path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding upstream request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[1].Content != "what is the mess menu" {
			t.Errorf("upstream messages = %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: "Rice and dal, probably."}}},
		})
	}))
	defer srv.Close()

	bot := testBot(srv.URL, "test-key")

	if got := bot.Reply(context.Background(), "what is the mess menu"); got != "Rice and dal, probably." {
		t.Errorf("Reply() = %q", got)
	}
}

func TestReply_UpstreamEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer srv.Close()

	bot := testBot(srv.URL, "test-key")

	if got := bot.Reply(context.Background(), "off-table question"); got != "Sorry, I couldn't find that information." {
		t.Errorf("Reply() = %q", got)
	}
}

func TestReply_UpstreamClientErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	bot := testBot(srv.URL, "test-key")

	if got := bot.Reply(context.Background(), "off-table question"); got != unavailableReply {
		t.Errorf("Reply() = %q, want the canned reply", got)
	}
	if calls != 1 {
		t.Errorf("upstream called %d times, want 1 (401 must not be retried)", calls)
	}
}

func TestReply_UpstreamServerErrorRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: "Recovered."}}},
		})
	}))
	defer srv.Close()

	bot := testBot(srv.URL, "test-key")

	if got := bot.Reply(context.Background(), "off-table question"); got != "Recovered." {
		t.Errorf("Reply() = %q, want the retried answer", got)
	}
	if calls != 2 {
		t.Errorf("upstream called %d times, want 2", calls)
	}
}
