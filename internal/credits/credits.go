// Package credits implements the ledger bookkeeping invoked at debate
// initialization: the initiating channel is debited a fixed debate cost
// and the opposing channel is credited a fixed chat-count increment.
package credits

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/channelchat/channelchat/internal/core"
	"github.com/channelchat/channelchat/internal/storage"
)

// Ledger entry kinds.
const (
	KindDebateCost = "debate_cost"
	KindChatCredit = "chat_credit"
)

// Default amounts. Whether the asymmetry is intentional is an open
// question upstream, so both are configurable.
const (
	DefaultDebateCost = 50
	DefaultChatCredit = 10
)

// Ledger records debit/credit operations keyed by channel ID.
type Ledger struct {
	storage    storage.Storage
	debateCost int
	chatCredit int
}

// NewLedger creates a ledger with the given amounts; zero values fall
// back to the defaults.
func NewLedger(store storage.Storage, debateCost, chatCredit int) *Ledger {
	if debateCost <= 0 {
		debateCost = DefaultDebateCost
	}
	if chatCredit <= 0 {
		chatCredit = DefaultChatCredit
	}
	return &Ledger{
		storage:    store,
		debateCost: debateCost,
		chatCredit: chatCredit,
	}
}

// DebateCost returns the configured per-debate debit.
func (l *Ledger) DebateCost() int {
	return l.debateCost
}

// DebateInitialized applies the cross-subsidy for a newly created debate:
// channel 1 pays the debate cost, channel 2 gains chat credit.
func (l *Ledger) DebateInitialized(channelID1, channelID2, debateID string) error {
	now := time.Now()

	if err := l.storage.AdjustChannelCredits(channelID1, -l.debateCost); err != nil {
		return fmt.Errorf("failed to debit channel %s: %w", channelID1, err)
	}
	if err := l.storage.AddCreditEntry(&core.CreditEntry{
		ID:        uuid.NewString(),
		ChannelID: channelID1,
		Delta:     -l.debateCost,
		Kind:      KindDebateCost,
		DebateID:  debateID,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("failed to record debit: %w", err)
	}

	if err := l.storage.IncrementChatCount(channelID2, l.chatCredit); err != nil {
		return fmt.Errorf("failed to credit channel %s: %w", channelID2, err)
	}
	if err := l.storage.AddCreditEntry(&core.CreditEntry{
		ID:        uuid.NewString(),
		ChannelID: channelID2,
		Delta:     l.chatCredit,
		Kind:      KindChatCredit,
		DebateID:  debateID,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("failed to record credit: %w", err)
	}

	return nil
}
