// Package runner drives a debate forward automatically, one generated
// turn at a time, until the debate concludes.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/channelchat/channelchat/internal/apiclient"
	"github.com/channelchat/channelchat/internal/core"
)

// DebateClient is the subset of the API client the runner needs.
type DebateClient interface {
	GetDebate(ctx context.Context, debateID string) (*apiclient.DebateResponse, error)
	Turn(ctx context.Context, debateID, content string) (*apiclient.DebateResponse, error)
	Conclude(ctx context.Context, debateID string) (*apiclient.DebateResponse, error)
}

// Notifier receives runner events. Implementations must not block.
type Notifier interface {
	TurnAdded(debate *core.Debate, turn *core.DebateTurn)
	Concluded(debate *core.Debate)
	Error(debateID string, err error)
}

// Options configures a Runner.
type Options struct {
	// Debounce is how long to wait after the last observed change
	// before requesting the next automatic turn.
	Debounce time.Duration
	// PollInterval is how often to re-check debate state.
	PollInterval time.Duration
	// AutoConclude requests summaries once the turn cap is reached.
	AutoConclude bool
}

// DefaultDebounce is the pause before each automatic turn.
const DefaultDebounce = 2 * time.Second

// DefaultPollInterval is how often the runner re-reads debate state.
const DefaultPollInterval = 3 * time.Second

// Runner advances a debate by requesting turns against the API.
// A manual RequestTurn always wins over the automatic loop: it
// cancels any in-flight automatic request before issuing its own.
type Runner struct {
	client   DebateClient
	notifier Notifier
	opts     Options

	// turnMu is held for the duration of a turn request.
	turnMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Runner.
func New(client DebateClient, notifier Notifier, opts Options) *Runner {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Runner{
		client:   client,
		notifier: notifier,
		opts:     opts,
	}
}

// Run drives the debate until it is concluded or ctx is cancelled.
// Failed turns are reported through the notifier and not retried;
// the loop keeps polling so a later state change can resume it.
func (r *Runner) Run(ctx context.Context, debateID string) error {
	for {
		resp, err := r.client.GetDebate(ctx, debateID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		debate := resp.Debate
		if debate.Status == core.StatusConcluded {
			r.notifier.Concluded(debate)
			return nil
		}

		if !debate.AcceptsTurns(len(resp.Turns)) {
			if r.opts.AutoConclude {
				if _, err := r.client.Conclude(ctx, debateID); err != nil {
					r.notifier.Error(debateID, err)
				}
			}
			if err := r.sleep(ctx, r.opts.PollInterval); err != nil {
				return err
			}
			continue
		}

		if err := r.sleep(ctx, r.opts.Debounce); err != nil {
			return err
		}

		if err := r.autoAdvance(ctx, debateID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// ErrInvalidState means another driver got there first.
			// Not an error worth surfacing, just poll again.
			if !errors.Is(err, core.ErrInvalidState) {
				r.notifier.Error(debateID, err)
			}
			if err := r.sleep(ctx, r.opts.PollInterval); err != nil {
				return err
			}
		}
	}
}

// RequestTurn issues a user-steered turn. Any in-flight automatic turn
// is cancelled first and the manual request waits for it to unwind, so
// the latest user action always wins.
func (r *Runner) RequestTurn(ctx context.Context, debateID, content string) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	r.turnMu.Lock()
	defer r.turnMu.Unlock()
	return r.doTurn(ctx, debateID, content)
}

// autoAdvance requests the next automatic turn, yielding to any turn
// already in flight.
func (r *Runner) autoAdvance(ctx context.Context, debateID string) error {
	if !r.turnMu.TryLock() {
		return core.ErrInvalidState
	}
	defer r.turnMu.Unlock()
	return r.doTurn(ctx, debateID, "")
}

// doTurn issues one turn request. Caller holds turnMu.
func (r *Runner) doTurn(ctx context.Context, debateID, content string) error {
	turnCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
		cancel()
	}()

	resp, err := r.client.Turn(turnCtx, debateID, content)
	if err != nil {
		return err
	}

	if turns := resp.Turns; len(turns) > 0 {
		r.notifier.TurnAdded(resp.Debate, turns[len(turns)-1])
	}
	if resp.Debate.Status == core.StatusConcluded {
		r.notifier.Concluded(resp.Debate)
	}
	return nil
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// LogNotifier logs runner events with slog.
type LogNotifier struct{}

func (LogNotifier) TurnAdded(debate *core.Debate, turn *core.DebateTurn) {
	slog.Info("Turn added", "debate_id", debate.ID, "position", turn.Position, "channel_id", turn.ChannelID)
}

func (LogNotifier) Concluded(debate *core.Debate) {
	slog.Info("Debate concluded", "debate_id", debate.ID)
}

func (LogNotifier) Error(debateID string, err error) {
	slog.Error("Turn failed", "debate_id", debateID, "error", err)
}
