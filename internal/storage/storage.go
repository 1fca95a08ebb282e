// Package storage provides persistence for channels, debates and the
// credit ledger.
package storage

import (
	"github.com/channelchat/channelchat/internal/core"
)

// Storage defines the interface for channelchat persistence.
type Storage interface {
	// Initialize sets up the storage (creates tables, etc.)
	Initialize() error

	// Close closes the storage connection.
	Close() error

	// Channel operations
	CreateChannel(ch *core.Channel) error
	GetChannel(id string) (*core.Channel, error)
	ListChannels(limit, offset int) ([]*core.Channel, error)
	AdjustChannelCredits(id string, delta int) error
	IncrementChatCount(id string, delta int) error

	// Interest operations
	AddInterest(in *core.Interest) error
	GetInterests(channelID string, limit int) ([]*core.Interest, error)

	// Debate operations
	CreateDebate(debate *core.Debate) error
	GetDebate(id string) (*core.Debate, error)
	UpdateDebate(debate *core.Debate) error
	ListDebates(limit, offset int) ([]*core.DebateSummary, error)

	// Turn operations
	AddTurn(turn *core.DebateTurn) error
	GetTurns(debateID string) ([]*core.DebateTurn, error)
	CountTurns(debateID string) (int, error)

	// Credit ledger operations
	AddCreditEntry(entry *core.CreditEntry) error
	GetCreditEntries(channelID string, limit int) ([]*core.CreditEntry, error)
}
