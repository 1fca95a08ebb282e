package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/channelchat/channelchat/internal/core"
	"github.com/channelchat/channelchat/internal/credits"
	"github.com/channelchat/channelchat/internal/engine"
	"github.com/channelchat/channelchat/internal/retrieval"
	"github.com/channelchat/channelchat/internal/storage"
	"github.com/channelchat/channelchat/internal/textgen"
)

type emptyRetriever struct{}

func (emptyRetriever) RelevantChunks(ctx context.Context, query, channelID string, limit, contextWindow int) ([]retrieval.Chunk, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*httptest.Server, storage.Storage) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "channelchat-handlers-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := storage.NewSQLiteStorage(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Initialize(); err != nil {
		t.Fatalf("failed to initialize storage: %v", err)
	}

	eng := engine.New(store, textgen.NewMockGenerator("A generated debate turn."), emptyRetriever{},
		credits.NewLedger(store, 0, 0), engine.Options{})

	srv := httptest.NewServer(New(store, eng).Router())
	t.Cleanup(srv.Close)
	return srv, store
}

func seedChannel(t *testing.T, store storage.Storage, id, name string) {
	t.Helper()
	err := store.CreateChannel(&core.Channel{
		ID:        id,
		Name:      name,
		Title:     name + " Channel",
		Credits:   100,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to seed channel: %v", err)
	}
}

func postAction(t *testing.T, srv *httptest.Server, body map[string]string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	data, _ := json.Marshal(body)
	resp, err := http.Post(srv.URL+"/api/debate", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp, payload
}

func initializeDebate(t *testing.T, srv *httptest.Server) *core.Debate {
	t.Helper()

	resp, payload := postAction(t, srv, map[string]string{
		"action":     "initialize",
		"channelId1": "ch-1",
		"channelId2": "ch-2",
		"topic":      "The Future of Long-Form Video",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("initialize status = %d", resp.StatusCode)
	}

	var debate core.Debate
	if err := json.Unmarshal(payload["debate"], &debate); err != nil {
		t.Fatalf("failed to decode debate: %v", err)
	}
	return &debate
}

func TestDebateActions(t *testing.T) {
	t.Run("Initialize", func(t *testing.T) {
		srv, store := newTestServer(t)
		seedChannel(t, store, "ch-1", "TechTalks")
		seedChannel(t, store, "ch-2", "ScienceNow")

		debate := initializeDebate(t, srv)
		if debate.Status != core.StatusInProgress {
			t.Errorf("status = %q", debate.Status)
		}
	})

	t.Run("InitializeUnknownChannelIs404", func(t *testing.T) {
		srv, store := newTestServer(t)
		seedChannel(t, store, "ch-1", "TechTalks")

		resp, _ := postAction(t, srv, map[string]string{
			"action":     "initialize",
			"channelId1": "ch-1",
			"channelId2": "ghost",
			"topic":      "A Topic",
		})
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("InitializeSameChannelIs400", func(t *testing.T) {
		srv, store := newTestServer(t)
		seedChannel(t, store, "ch-1", "TechTalks")

		resp, _ := postAction(t, srv, map[string]string{
			"action":     "initialize",
			"channelId1": "ch-1",
			"channelId2": "ch-1",
			"topic":      "A Topic",
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("TurnAdvancesDebate", func(t *testing.T) {
		srv, store := newTestServer(t)
		seedChannel(t, store, "ch-1", "TechTalks")
		seedChannel(t, store, "ch-2", "ScienceNow")
		debate := initializeDebate(t, srv)

		resp, payload := postAction(t, srv, map[string]string{
			"action":   "turn",
			"debateId": debate.ID,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("turn status = %d", resp.StatusCode)
		}

		var turns []*core.DebateTurn
		if err := json.Unmarshal(payload["turns"], &turns); err != nil {
			t.Fatalf("failed to decode turns: %v", err)
		}
		if len(turns) != 1 {
			t.Fatalf("got %d turns", len(turns))
		}
		if turns[0].ChannelID != "ch-1" {
			t.Errorf("first speaker = %q, want ch-1", turns[0].ChannelID)
		}
	})

	t.Run("TurnPastCapIs409", func(t *testing.T) {
		srv, store := newTestServer(t)
		seedChannel(t, store, "ch-1", "TechTalks")
		seedChannel(t, store, "ch-2", "ScienceNow")
		debate := initializeDebate(t, srv)

		for i := 0; i < core.DefaultMaxTurns; i++ {
			resp, _ := postAction(t, srv, map[string]string{
				"action":   "turn",
				"debateId": debate.ID,
			})
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("turn %d status = %d", i, resp.StatusCode)
			}
		}

		resp, _ := postAction(t, srv, map[string]string{
			"action":   "turn",
			"debateId": debate.ID,
		})
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
	})

	t.Run("TurnUnknownDebateIs404", func(t *testing.T) {
		srv, _ := newTestServer(t)

		resp, _ := postAction(t, srv, map[string]string{
			"action":   "turn",
			"debateId": "ghost",
		})
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("Conclude", func(t *testing.T) {
		srv, store := newTestServer(t)
		seedChannel(t, store, "ch-1", "TechTalks")
		seedChannel(t, store, "ch-2", "ScienceNow")
		debate := initializeDebate(t, srv)

		resp, payload := postAction(t, srv, map[string]string{
			"action":   "conclude",
			"debateId": debate.ID,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("conclude status = %d", resp.StatusCode)
		}

		var got core.Debate
		if err := json.Unmarshal(payload["debate"], &got); err != nil {
			t.Fatalf("failed to decode debate: %v", err)
		}
		if got.Status != core.StatusConcluded {
			t.Errorf("status = %q", got.Status)
		}
		if got.Summary1 == "" || got.Summary2 == "" {
			t.Error("summaries missing")
		}
	})

	t.Run("UnknownActionIs400", func(t *testing.T) {
		srv, _ := newTestServer(t)

		resp, _ := postAction(t, srv, map[string]string{"action": "dance"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestGetDebate(t *testing.T) {
	srv, store := newTestServer(t)
	seedChannel(t, store, "ch-1", "TechTalks")
	seedChannel(t, store, "ch-2", "ScienceNow")
	debate := initializeDebate(t, srv)

	resp, err := http.Get(srv.URL + "/api/debate?id=" + debate.ID)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	t.Run("MissingIDIs400", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/debate")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("UnknownIDIs404", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/debate?id=ghost")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}

func TestChannelEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{
		"name":    "TechTalks",
		"title":   "Tech Talks Weekly",
		"credits": 100,
	})
	resp, err := http.Post(srv.URL+"/api/channels", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var created core.Channel
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode channel: %v", err)
	}
	if created.ID == "" {
		t.Error("channel ID not assigned")
	}

	getResp, err := http.Get(fmt.Sprintf("%s/api/channels/%s", srv.URL, created.ID))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Errorf("get status = %d", getResp.StatusCode)
	}

	listResp, err := http.Get(srv.URL + "/api/channels")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer listResp.Body.Close()
	var listed map[string][]*core.Channel
	if err := json.NewDecoder(listResp.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(listed["channels"]) != 1 {
		t.Errorf("got %d channels", len(listed["channels"]))
	}
}

func TestExportEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	seedChannel(t, store, "ch-1", "TechTalks")
	seedChannel(t, store, "ch-2", "ScienceNow")
	debate := initializeDebate(t, srv)

	resp, err := http.Get(fmt.Sprintf("%s/api/debate/%s/export/markdown", srv.URL, debate.ID))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/markdown" {
		t.Errorf("content-type = %q", ct)
	}

	t.Run("BadFormatIs400", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/api/debate/%s/export/docx", srv.URL, debate.ID))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
