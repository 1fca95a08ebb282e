// Package handlers provides HTTP handlers for the debate API.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/channelchat/channelchat/internal/core"
	"github.com/channelchat/channelchat/internal/engine"
	"github.com/channelchat/channelchat/internal/export"
	"github.com/channelchat/channelchat/internal/storage"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	engine  *engine.Engine
	storage storage.Storage
}

// New creates a new Handler.
func New(store storage.Storage, eng *engine.Engine) *Handler {
	return &Handler{
		engine:  eng,
		storage: store,
	}
}

// Router builds the chi router with all routes registered.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/debate", h.handleDebateAction)
		r.Get("/debate", h.handleGetDebate)
		r.Get("/debates", h.handleListDebates)

		r.Get("/channels", h.handleListChannels)
		r.Post("/channels", h.handleCreateChannel)
		r.Get("/channels/{id}", h.handleGetChannel)

		r.Get("/debate/{id}/export/{format}", h.handleExportDebate)
	})

	return r
}

// debateActionRequest is the envelope for all debate mutations.
type debateActionRequest struct {
	Action           string `json:"action"`
	DebateID         string `json:"debateId,omitempty"`
	ChannelID1       string `json:"channelId1,omitempty"`
	ChannelID2       string `json:"channelId2,omitempty"`
	Topic            string `json:"topic,omitempty"`
	TopicDescription string `json:"topicDescription,omitempty"`
	Content          string `json:"content,omitempty"`
	CreatedBy        string `json:"createdBy,omitempty"`
}

// debateResponse is the common shape for debate state replies.
type debateResponse struct {
	Debate *core.Debate       `json:"debate"`
	Turns  []*core.DebateTurn `json:"turns,omitempty"`
}

func (h *Handler) handleDebateAction(w http.ResponseWriter, r *http.Request) {
	var req debateActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	switch req.Action {
	case "initialize":
		h.handleInitialize(w, r, req)
	case "turn":
		h.handleTurn(w, r, req)
	case "conclude":
		h.handleConclude(w, r, req)
	case "generateTopics":
		h.handleGenerateTopics(w, r, req)
	default:
		h.jsonError(w, fmt.Sprintf("unknown action: %s", req.Action), http.StatusBadRequest)
	}
}

func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request, req debateActionRequest) {
	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = req.ChannelID1
	}

	debate, err := h.engine.Initialize(r.Context(), req.ChannelID1, req.ChannelID2, createdBy, core.Topic{
		Title:       req.Topic,
		Description: req.TopicDescription,
	})
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.json(w, debateResponse{Debate: debate})
}

func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request, req debateActionRequest) {
	if req.DebateID == "" {
		h.jsonError(w, "debateId is required", http.StatusBadRequest)
		return
	}

	// Validate the debate can still take turns before generating
	// anything, so callers get a clean 409 rather than a failed turn.
	debate, turns, err := h.engine.GetDebate(req.DebateID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	if !debate.AcceptsTurns(len(turns)) {
		h.jsonError(w, "debate no longer accepts turns", http.StatusConflict)
		return
	}

	debate, turns, err = h.engine.ProcessTurn(r.Context(), req.DebateID, req.Content)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.json(w, debateResponse{Debate: debate, Turns: turns})
}

func (h *Handler) handleConclude(w http.ResponseWriter, r *http.Request, req debateActionRequest) {
	if req.DebateID == "" {
		h.jsonError(w, "debateId is required", http.StatusBadRequest)
		return
	}

	debate, turns, err := h.engine.Conclude(r.Context(), req.DebateID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.json(w, debateResponse{Debate: debate, Turns: turns})
}

func (h *Handler) handleGenerateTopics(w http.ResponseWriter, r *http.Request, req debateActionRequest) {
	if req.ChannelID1 == "" || req.ChannelID2 == "" {
		h.jsonError(w, "channelId1 and channelId2 are required", http.StatusBadRequest)
		return
	}

	topics, err := h.engine.GenerateTopics(r.Context(), req.ChannelID1, req.ChannelID2)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.json(w, map[string][]core.Topic{"topics": topics})
}

func (h *Handler) handleGetDebate(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.jsonError(w, "id is required", http.StatusBadRequest)
		return
	}

	debate, turns, err := h.engine.GetDebate(id)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.json(w, debateResponse{Debate: debate, Turns: turns})
}

func (h *Handler) handleListDebates(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	debates, err := h.engine.ListDebates(limit, offset)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.json(w, map[string][]*core.DebateSummary{"debates": debates})
}

type createChannelRequest struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Credits int    `json:"credits"`
}

func (h *Handler) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var req createChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		h.jsonError(w, "name is required", http.StatusBadRequest)
		return
	}

	channel := &core.Channel{
		ID:      core.GenerateID(),
		Name:    req.Name,
		Title:   req.Title,
		Credits: req.Credits,
	}
	if err := h.storage.CreateChannel(channel); err != nil {
		h.serviceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(channel)
}

func (h *Handler) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	channel, err := h.storage.GetChannel(chi.URLParam(r, "id"))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	if channel == nil {
		h.jsonError(w, "channel not found", http.StatusNotFound)
		return
	}
	h.json(w, channel)
}

func (h *Handler) handleListChannels(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	channels, err := h.storage.ListChannels(limit, offset)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.json(w, map[string][]*core.Channel{"channels": channels})
}

func (h *Handler) handleExportDebate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format := chi.URLParam(r, "format")

	debate, turns, err := h.engine.GetDebate(id)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	ch1, err := h.storage.GetChannel(debate.ChannelID1)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	ch2, err := h.storage.GetChannel(debate.ChannelID2)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	exporter, err := export.GetExporter(export.Format(format))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	filename := export.GenerateFilename(debate, exporter.FileExtension())

	switch format {
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
	case "json":
		w.Header().Set("Content-Type", "application/json")
	default:
		w.Header().Set("Content-Type", "text/markdown")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))

	if err := exporter.Export(debate, ch1, ch2, turns, w); err != nil {
		slog.Error("Export failed", "debate_id", id, "format", format, "error", err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.json(w, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// serviceError maps engine errors onto HTTP status codes.
func (h *Handler) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		h.jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, core.ErrInvalidParameters):
		h.jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, core.ErrInvalidState):
		h.jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, core.ErrGenerationFailed):
		h.jsonError(w, err.Error(), http.StatusBadGateway)
	default:
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) json(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
