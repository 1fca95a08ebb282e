package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/channelchat/channelchat/internal/core"
	"github.com/channelchat/channelchat/internal/prompts"
)

// GenerateTopics proposes 2-3 debate topics for two channel personas from
// their recorded interests. Channels with no interests yet get them
// lazily populated from transcript excerpts as a side effect.
func (e *Engine) GenerateTopics(ctx context.Context, channelID1, channelID2 string) ([]core.Topic, error) {
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

	interests1, err := e.interestsFor(ctx, ch1)
	if err != nil {
		return nil, err
	}
	interests2, err := e.interestsFor(ctx, ch2)
	if err != nil {
		return nil, err
	}

	prompt, err := prompts.RenderTopics(prompts.TopicsData{
		Channel1Name:      ch1.Name,
		Channel1Interests: prompts.FormatInterests(interests1),
		Channel2Name:      ch2.Name,
		Channel2Interests: prompts.FormatInterests(interests2),
	})
	if err != nil {
		return nil, err
	}

	raw, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrGenerationFailed, err)
	}

	topics := core.ParseTopics(raw)
	if len(topics) == 0 {
		return nil, fmt.Errorf("no parseable topics in generator output: %w", core.ErrGenerationFailed)
	}
	if len(topics) > 3 {
		topics = topics[:3]
	}

	return topics, nil
}

// interestsFor returns up to interestLimit interests for a channel,
// generating and persisting them from transcript excerpts when the
// channel has none. Lazy population is best-effort: if retrieval or
// generation fails, topic generation proceeds with no interests.
func (e *Engine) interestsFor(ctx context.Context, ch *core.Channel) ([]*core.Interest, error) {
	interests, err := e.storage.GetInterests(ch.ID, interestLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get interests: %w", err)
	}
	if len(interests) > 0 {
		return interests, nil
	}

	generated := e.populateInterests(ctx, ch)
	return generated, nil
}

func (e *Engine) populateInterests(ctx context.Context, ch *core.Channel) []*core.Interest {
	query := strings.TrimSpace(ch.Name + " " + ch.Title)
	chunks, err := e.retriever.RelevantChunks(ctx, query, ch.ID, contextChunkLimit, contextWindow)
	if err != nil {
		slog.Warn("Interest population skipped, retrieval unavailable",
			"channel_id", ch.ID,
			"error", fmt.Errorf("%w: %v", core.ErrContextUnavailable, err),
		)
		return nil
	}

	excerpts := joinChunks(chunks)
	if excerpts == "" {
		return nil
	}

	prompt, err := prompts.RenderInterests(prompts.InterestsData{
		ChannelName: ch.Name,
		Excerpts:    excerpts,
		Count:       interestLimit,
	})
	if err != nil {
		slog.Warn("Interest population skipped", "channel_id", ch.ID, "error", err)
		return nil
	}

	raw, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("Interest population skipped, generation failed", "channel_id", ch.ID, "error", err)
		return nil
	}

	var interests []*core.Interest
	for _, topic := range core.ParseTopics(raw) {
		interest := &core.Interest{
			ID:          core.GenerateID(),
			ChannelID:   ch.ID,
			Title:       topic.Title,
			Description: topic.Description,
			CreatedAt:   time.Now(),
		}
		if err := e.storage.AddInterest(interest); err != nil {
			slog.Warn("Failed to persist interest", "channel_id", ch.ID, "error", err)
			continue
		}
		interests = append(interests, interest)
		if len(interests) >= interestLimit {
			break
		}
	}

	slog.Debug("Interests populated", "channel_id", ch.ID, "count", len(interests))
	return interests
}
