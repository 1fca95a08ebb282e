package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/channelchat/channelchat/internal/core"
)

func debateServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodGet {
			if r.URL.Query().Get("id") == "ghost" {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]string{"error": "debate ghost: not found"})
				return
			}
			json.NewEncoder(w).Encode(DebateResponse{
				Debate: &core.Debate{ID: "deb-1", Status: core.StatusInProgress, MaxTurns: 10},
			})
			return
		}

		var req actionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		switch req.Action {
		case "initialize":
			json.NewEncoder(w).Encode(DebateResponse{
				Debate: &core.Debate{
					ID:         "deb-1",
					ChannelID1: req.ChannelID1,
					ChannelID2: req.ChannelID2,
					Status:     core.StatusInProgress,
					TopicTitle: req.Topic,
					MaxTurns:   10,
				},
			})
		case "turn":
			json.NewEncoder(w).Encode(DebateResponse{
				Debate: &core.Debate{ID: req.DebateID, Status: core.StatusInProgress, MaxTurns: 10},
				Turns: []*core.DebateTurn{
					{ID: "turn-1", DebateID: req.DebateID, Position: 0, Content: "generated"},
				},
			})
		case "conclude":
			json.NewEncoder(w).Encode(DebateResponse{
				Debate: &core.Debate{
					ID:       req.DebateID,
					Status:   core.StatusConcluded,
					Summary1: "one",
					Summary2: "two",
				},
			})
		case "generateTopics":
			json.NewEncoder(w).Encode(map[string][]core.Topic{
				"topics": {{Title: "A Good Topic", Description: "With a description."}},
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "unknown action"})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient(t *testing.T) {
	srv := debateServer(t)
	client := New(srv.URL)
	ctx := context.Background()

	t.Run("Initialize", func(t *testing.T) {
		resp, err := client.Initialize(ctx, "ch-1", "ch-2", "A Topic")
		if err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
		if resp.Debate.ID != "deb-1" || resp.Debate.TopicTitle != "A Topic" {
			t.Errorf("debate = %+v", resp.Debate)
		}
	})

	t.Run("Turn", func(t *testing.T) {
		resp, err := client.Turn(ctx, "deb-1", "steer this way")
		if err != nil {
			t.Fatalf("Turn failed: %v", err)
		}
		if len(resp.Turns) != 1 || resp.Turns[0].Content != "generated" {
			t.Errorf("turns = %+v", resp.Turns)
		}
	})

	t.Run("Conclude", func(t *testing.T) {
		resp, err := client.Conclude(ctx, "deb-1")
		if err != nil {
			t.Fatalf("Conclude failed: %v", err)
		}
		if resp.Debate.Status != core.StatusConcluded {
			t.Errorf("status = %q", resp.Debate.Status)
		}
	})

	t.Run("GenerateTopics", func(t *testing.T) {
		topics, err := client.GenerateTopics(ctx, "ch-1", "ch-2")
		if err != nil {
			t.Fatalf("GenerateTopics failed: %v", err)
		}
		if len(topics) != 1 || topics[0].Title != "A Good Topic" {
			t.Errorf("topics = %+v", topics)
		}
	})

	t.Run("GetDebate", func(t *testing.T) {
		resp, err := client.GetDebate(ctx, "deb-1")
		if err != nil {
			t.Fatalf("GetDebate failed: %v", err)
		}
		if resp.Debate.ID != "deb-1" {
			t.Errorf("debate = %+v", resp.Debate)
		}
	})

	t.Run("NotFoundMapsToSentinel", func(t *testing.T) {
		_, err := client.GetDebate(ctx, "ghost")
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, core.ErrNotFound},
		{http.StatusBadRequest, core.ErrInvalidParameters},
		{http.StatusConflict, core.ErrInvalidState},
		{http.StatusBadGateway, core.ErrGenerationFailed},
	}
	for _, tt := range tests {
		err := statusError(tt.code, []byte(`{"error":"boom"}`))
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: got %v, want %v", tt.code, err, tt.want)
		}
	}

	err := statusError(http.StatusInternalServerError, []byte("not json"))
	if err == nil {
		t.Error("expected error for 500")
	}
}
