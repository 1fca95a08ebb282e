// Package engine implements the debate state machine: a driver-agnostic
// advance function over debates persisted in storage. It never schedules
// itself; any driver (the HTTP API, the CLI runner, a cron job) may call
// ProcessTurn at its own cadence.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/channelchat/channelchat/internal/core"
	"github.com/channelchat/channelchat/internal/credits"
	"github.com/channelchat/channelchat/internal/retrieval"
	"github.com/channelchat/channelchat/internal/storage"
	"github.com/channelchat/channelchat/internal/textgen"
)

const (
	// contextChunkLimit is how many ranked snippets are retrieved per
	// channel for a turn.
	contextChunkLimit = 5

	// contextWindow is the snippet context window passed to retrieval.
	contextWindow = 1

	// interestLimit bounds how many interest records ground a prompt.
	interestLimit = 5
)

// Engine orchestrates channel-persona debates.
type Engine struct {
	storage   storage.Storage
	generator textgen.Generator
	retriever retrieval.Retriever
	ledger    *credits.Ledger
	maxTurns  int

	// turnLocks holds one advisory mutex per debate ID so at most one
	// turn-advance is in flight per debate within this process. The
	// unique turn-position index in storage backs this up across
	// processes.
	turnLocks sync.Map
}

// Options tunes engine behavior.
type Options struct {
	MaxTurns int
}

// New creates a debate engine.
func New(store storage.Storage, gen textgen.Generator, retr retrieval.Retriever, ledger *credits.Ledger, opts Options) *Engine {
	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = core.DefaultMaxTurns
	}
	return &Engine{
		storage:   store,
		generator: gen,
		retriever: retr,
		ledger:    ledger,
		maxTurns:  maxTurns,
	}
}

// MaxTurns returns the configured turn cap for new debates.
func (e *Engine) MaxTurns() int {
	return e.maxTurns
}

// Initialize creates a debate between two channels on the given topic and
// applies the credit cross-subsidy.
func (e *Engine) Initialize(ctx context.Context, channelID1, channelID2, userID string, topic core.Topic) (*core.Debate, error) {
	if channelID1 == "" || channelID2 == "" || topic.Title == "" {
		return nil, fmt.Errorf("channel IDs and topic are required: %w", core.ErrInvalidParameters)
	}
	if channelID1 == channelID2 {
		return nil, fmt.Errorf("participants must be distinct: %w", core.ErrInvalidParameters)
	}

	ch1, err := e.storage.GetChannel(channelID1)
	if err != nil {
		return nil, fmt.Errorf("failed to load channel: %w", err)
	}
	ch2, err := e.storage.GetChannel(channelID2)
	if err != nil {
		return nil, fmt.Errorf("failed to load channel: %w", err)
	}
	if ch1 == nil || ch2 == nil {
		return nil, fmt.Errorf("channel missing: %w", core.ErrNotFound)
	}

	now := time.Now()
	debate := &core.Debate{
		ID:               core.GenerateID(),
		ChannelID1:       channelID1,
		ChannelID2:       channelID2,
		Status:           core.StatusInProgress,
		TopicTitle:       topic.Title,
		TopicDescription: topic.Description,
		CreatedBy:        userID,
		MaxTurns:         e.maxTurns,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := e.storage.CreateDebate(debate); err != nil {
		return nil, fmt.Errorf("failed to create debate: %w", err)
	}

	if err := e.ledger.DebateInitialized(channelID1, channelID2, debate.ID); err != nil {
		slog.Error("Failed to apply debate credits", "debate_id", debate.ID, "error", err)
		return nil, err
	}

	slog.Info("Debate initialized",
		"debate_id", debate.ID,
		"channel_1", channelID1,
		"channel_2", channelID2,
		"topic", topic.Title,
	)
	return debate, nil
}

// GetDebate retrieves a debate with its ordered turns. Returns
// core.ErrNotFound when the debate does not exist.
func (e *Engine) GetDebate(debateID string) (*core.Debate, []*core.DebateTurn, error) {
	debate, err := e.storage.GetDebate(debateID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get debate: %w", err)
	}
	if debate == nil {
		return nil, nil, fmt.Errorf("debate %s: %w", debateID, core.ErrNotFound)
	}

	turns, err := e.storage.GetTurns(debateID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get turns: %w", err)
	}

	return debate, turns, nil
}

// ListDebates returns a page of debate summaries.
func (e *Engine) ListDebates(limit, offset int) ([]*core.DebateSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	return e.storage.ListDebates(limit, offset)
}

// ProcessTurn advances a debate by exactly one turn: it derives the
// speaking channel from turn parity, generates that channel's utterance
// for the current stage, appends it, and recomputes status. Not
// idempotent; concurrent calls for the same debate fail fast with
// core.ErrInvalidState instead of racing.
func (e *Engine) ProcessTurn(ctx context.Context, debateID, userContent string) (*core.Debate, []*core.DebateTurn, error) {
	unlock, ok := e.tryLockDebate(debateID)
	if !ok {
		return nil, nil, fmt.Errorf("turn already in flight for debate %s: %w", debateID, core.ErrInvalidState)
	}
	defer unlock()

	debate, turns, err := e.GetDebate(debateID)
	if err != nil {
		return nil, nil, err
	}

	if !debate.AcceptsTurns(len(turns)) {
		return nil, nil, fmt.Errorf("debate %s cannot accept turns (status=%s, turns=%d): %w",
			debateID, debate.Status, len(turns), core.ErrInvalidState)
	}

	position := len(turns)
	speaker := debate.SpeakerAt(position)
	stage := core.StageFor(position, debate.MaxTurns)

	content, err := e.GenerateResponse(ctx, speaker, debate, turns, userContent, stage)
	if err != nil {
		return nil, nil, err
	}

	turn := &core.DebateTurn{
		ID:        core.GenerateID(),
		DebateID:  debate.ID,
		ChannelID: speaker,
		Position:  position,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := e.storage.AddTurn(turn); err != nil {
		return nil, nil, err
	}

	// Status only moves forward: hitting the cap concludes; entering the
	// conclusion window marks the debate ready to conclude.
	switch {
	case position+1 >= debate.MaxTurns:
		debate.Status = core.StatusConcluded
		now := time.Now()
		debate.ConcludedAt = &now
	case stage == core.StageConclusion && debate.Status == core.StatusInProgress:
		debate.Status = core.StatusReadyToConclude
	}

	if err := e.storage.UpdateDebate(debate); err != nil {
		return nil, nil, fmt.Errorf("failed to update debate: %w", err)
	}

	turns = append(turns, turn)
	slog.Debug("Turn processed",
		"debate_id", debate.ID,
		"position", position,
		"speaker", speaker,
		"stage", stage,
		"status", debate.Status,
	)
	return debate, turns, nil
}

// Conclude generates closing statements for both participants and moves
// the debate to its terminal state. Calling it on a debate whose
// summaries are already set returns the debate unchanged with no new
// generation calls.
func (e *Engine) Conclude(ctx context.Context, debateID string) (*core.Debate, []*core.DebateTurn, error) {
	debate, turns, err := e.GetDebate(debateID)
	if err != nil {
		return nil, nil, err
	}

	if debate.Status == core.StatusConcluded && debate.Summary1 != "" && debate.Summary2 != "" {
		return debate, turns, nil
	}
	if !debate.Concludable() {
		return nil, nil, fmt.Errorf("debate %s is not concludable (status=%s): %w",
			debateID, debate.Status, core.ErrInvalidState)
	}

	summary1, err := e.GenerateResponse(ctx, debate.ChannelID1, debate, turns, "", core.StageConclusion)
	if err != nil {
		return nil, nil, err
	}
	summary2, err := e.GenerateResponse(ctx, debate.ChannelID2, debate, turns, "", core.StageConclusion)
	if err != nil {
		return nil, nil, err
	}

	debate.Summary1 = summary1
	debate.Summary2 = summary2
	debate.Status = core.StatusConcluded
	if debate.ConcludedAt == nil {
		now := time.Now()
		debate.ConcludedAt = &now
	}

	if err := e.storage.UpdateDebate(debate); err != nil {
		return nil, nil, fmt.Errorf("failed to update debate: %w", err)
	}

	slog.Info("Debate concluded", "debate_id", debate.ID, "turns", len(turns))
	return debate, turns, nil
}

// tryLockDebate acquires the advisory per-debate turn lock without
// blocking. The returned func releases it.
func (e *Engine) tryLockDebate(debateID string) (func(), bool) {
	v, _ := e.turnLocks.LoadOrStore(debateID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, false
	}
	return mu.Unlock, true
}

// buildTranscript renders prior turns as a linear transcript, labeling
// speakers by participant slot.
func buildTranscript(debate *core.Debate, turns []*core.DebateTurn, name1, name2 string) string {
	var sb strings.Builder
	for _, t := range turns {
		name := name1
		if t.ChannelID == debate.ChannelID2 {
			name = name2
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", name, t.Content))
	}
	return strings.TrimRight(sb.String(), "\n")
}
