package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/channelchat/channelchat/internal/core"
	"github.com/channelchat/channelchat/internal/prompts"
	"github.com/channelchat/channelchat/internal/retrieval"
)

// GenerateResponse produces one turn's text for the speaking channel at
// the given stage. Context snippets are retrieved for both participants
// concurrently; retrieval failure degrades to empty context rather than
// aborting the turn. Generation failure is the only hard error.
func (e *Engine) GenerateResponse(ctx context.Context, channelID string, debate *core.Debate, turns []*core.DebateTurn, userContent string, stage core.Stage) (string, error) {
	opponentID := debate.Opponent(channelID)

	speaker, err := e.storage.GetChannel(channelID)
	if err != nil {
		return "", fmt.Errorf("failed to load channel: %w", err)
	}
	opponent, err := e.storage.GetChannel(opponentID)
	if err != nil {
		return "", fmt.Errorf("failed to load channel: %w", err)
	}
	if speaker == nil || opponent == nil {
		return "", fmt.Errorf("debate participant missing: %w", core.ErrNotFound)
	}

	query := strings.TrimSpace(debate.TopicTitle + " " + debate.TopicDescription + " " + userContent)

	var speakerContext, opponentContext string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		speakerContext = e.retrieveContext(gctx, query, channelID)
		return nil
	})
	g.Go(func() error {
		opponentContext = e.retrieveContext(gctx, query, opponentID)
		return nil
	})
	g.Wait()

	name1 := speaker.Name
	name2 := opponent.Name
	if channelID != debate.ChannelID1 {
		name1, name2 = name2, name1
	}

	prompt, err := prompts.RenderTurn(stage, prompts.TurnData{
		SpeakerName:      speaker.Name,
		OpponentName:     opponent.Name,
		TopicTitle:       debate.TopicTitle,
		TopicDescription: debate.TopicDescription,
		SpeakerContext:   speakerContext,
		OpponentContext:  opponentContext,
		Transcript:       buildTranscript(debate, turns, name1, name2),
		UserContent:      userContent,
	})
	if err != nil {
		return "", err
	}

	response, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrGenerationFailed, err)
	}

	return strings.TrimSpace(response), nil
}

// retrieveContext fetches ranked snippets for one channel and joins them
// into a single context block. Failures degrade to empty context; the
// secondary dependency never fails the turn.
func (e *Engine) retrieveContext(ctx context.Context, query, channelID string) string {
	chunks, err := e.retriever.RelevantChunks(ctx, query, channelID, contextChunkLimit, contextWindow)
	if err != nil {
		slog.Warn("Context retrieval degraded to empty",
			"channel_id", channelID,
			"error", fmt.Errorf("%w: %v", core.ErrContextUnavailable, err),
		)
		return ""
	}
	return joinChunks(chunks)
}

func joinChunks(chunks []retrieval.Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		text := strings.TrimSpace(c.MainChunk)
		if text == "" {
			continue
		}
		sb.WriteString("- ")
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
