// Package core contains the core domain types for channelchat.
package core

import (
	"time"
)

// DebateStatus represents the current status of a debate.
type DebateStatus string

const (
	StatusInProgress      DebateStatus = "in_progress"
	StatusReadyToConclude DebateStatus = "ready_to_conclude"
	StatusConcluded       DebateStatus = "concluded"
)

// Stage is the rhetorical phase governing prompt framing for a turn.
type Stage string

const (
	StageIntro      Stage = "intro"
	StageResponse   Stage = "response"
	StageConclusion Stage = "conclusion"
)

// DefaultMaxTurns is the turn cap applied when a debate does not set one.
const DefaultMaxTurns = 10

// Channel represents an AI persona grounded in a YouTube channel's
// transcript data.
type Channel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Credits   int       `json:"credits"`
	ChatCount int       `json:"chat_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Interest is a titled topic summary associated with a channel persona,
// used as conversational grounding material.
type Interest struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Topic is a candidate debate subject.
type Topic struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Debate represents one scripted exchange between two channel personas.
// Participant order is fixed at creation and determines turn parity.
type Debate struct {
	ID               string       `json:"id"`
	ChannelID1       string       `json:"channel_id_1"`
	ChannelID2       string       `json:"channel_id_2"`
	Status           DebateStatus `json:"status"`
	TopicTitle       string       `json:"topic_title"`
	TopicDescription string       `json:"topic_description"`
	Summary1         string       `json:"summary_1,omitempty"`
	Summary2         string       `json:"summary_2,omitempty"`
	CreatedBy        string       `json:"created_by,omitempty"`
	MaxTurns         int          `json:"max_turns"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	ConcludedAt      *time.Time   `json:"concluded_at,omitempty"`
}

// DebateTurn is one utterance within a debate. Position is 0-based and
// unique within the debate.
type DebateTurn struct {
	ID        string    `json:"id"`
	DebateID  string    `json:"debate_id"`
	ChannelID string    `json:"channel_id"`
	Position  int       `json:"position"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CreditEntry is one row in the credit ledger.
type CreditEntry struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Delta     int       `json:"delta"`
	Kind      string    `json:"kind"`
	DebateID  string    `json:"debate_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DebateSummary is a lightweight representation for listing debates.
type DebateSummary struct {
	ID         string       `json:"id"`
	TopicTitle string       `json:"topic_title"`
	Status     DebateStatus `json:"status"`
	ChannelID1 string       `json:"channel_id_1"`
	ChannelID2 string       `json:"channel_id_2"`
	TurnCount  int          `json:"turn_count"`
	CreatedAt  time.Time    `json:"created_at"`
}

// SpeakerAt returns the channel that speaks at the given 0-based turn
// position: even positions belong to channel 1, odd to channel 2.
func (d *Debate) SpeakerAt(position int) string {
	if position%2 == 0 {
		return d.ChannelID1
	}
	return d.ChannelID2
}

// Opponent returns the other participant for a given channel ID.
func (d *Debate) Opponent(channelID string) string {
	if channelID == d.ChannelID1 {
		return d.ChannelID2
	}
	return d.ChannelID1
}

// Concludable reports whether the debate can accept a conclude request.
// A debate that hit the turn cap is marked concluded without summaries;
// it stays concludable until closing statements are generated.
func (d *Debate) Concludable() bool {
	switch d.Status {
	case StatusInProgress, StatusReadyToConclude:
		return true
	case StatusConcluded:
		return d.Summary1 == "" || d.Summary2 == ""
	}
	return false
}

// AcceptsTurns reports whether more turns may be appended given the
// current turn count.
func (d *Debate) AcceptsTurns(turnCount int) bool {
	return d.Status != StatusConcluded && turnCount < d.MaxTurns
}

// StageFor derives the rhetorical stage from the current turn count:
// intro for the very first turn, conclusion once the count enters the
// final window (maxTurns-2), response otherwise.
func StageFor(turnCount, maxTurns int) Stage {
	switch {
	case turnCount == 0:
		return StageIntro
	case turnCount >= maxTurns-2:
		return StageConclusion
	default:
		return StageResponse
	}
}
