package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/channelchat/channelchat/internal/core"
)

// MarkdownExporter exports debates to Markdown format.
type MarkdownExporter struct{}

// Export writes the debate as Markdown.
func (e *MarkdownExporter) Export(debate *core.Debate, ch1, ch2 *core.Channel, turns []*core.DebateTurn, w io.Writer) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", debate.TopicTitle))
	if debate.TopicDescription != "" {
		sb.WriteString(debate.TopicDescription)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Debate Information\n\n")
	sb.WriteString(fmt.Sprintf("- **ID:** `%s`\n", debate.ID))
	sb.WriteString(fmt.Sprintf("- **Status:** %s\n", debate.Status))
	sb.WriteString(fmt.Sprintf("- **Created:** %s\n", debate.CreatedAt.Format("January 2, 2006 at 3:04 PM")))
	if debate.ConcludedAt != nil {
		sb.WriteString(fmt.Sprintf("- **Concluded:** %s\n", debate.ConcludedAt.Format("January 2, 2006 at 3:04 PM")))
		sb.WriteString(fmt.Sprintf("- **Duration:** %s\n", formatDuration(debate.CreatedAt, *debate.ConcludedAt)))
	}
	sb.WriteString("\n")

	sb.WriteString("## Participants\n\n")
	sb.WriteString(fmt.Sprintf("- **Channel 1:** %s\n", speakerName(debate, ch1, ch2, debate.ChannelID1)))
	sb.WriteString(fmt.Sprintf("- **Channel 2:** %s\n", speakerName(debate, ch1, ch2, debate.ChannelID2)))
	sb.WriteString("\n")

	sb.WriteString("## Debate\n\n")

	if len(turns) == 0 {
		sb.WriteString("*No turns recorded.*\n\n")
	} else {
		for _, turn := range turns {
			name := speakerName(debate, ch1, ch2, turn.ChannelID)
			sb.WriteString(fmt.Sprintf("### Turn %d - %s\n\n", turn.Position+1, name))
			sb.WriteString(fmt.Sprintf("*%s*\n\n", turn.CreatedAt.Format("3:04 PM")))
			sb.WriteString(turn.Content)
			sb.WriteString("\n\n---\n\n")
		}
	}

	if debate.Summary1 != "" || debate.Summary2 != "" {
		sb.WriteString("## Closing Statements\n\n")
		if debate.Summary1 != "" {
			sb.WriteString(fmt.Sprintf("### %s\n\n", speakerName(debate, ch1, ch2, debate.ChannelID1)))
			sb.WriteString(debate.Summary1)
			sb.WriteString("\n\n")
		}
		if debate.Summary2 != "" {
			sb.WriteString(fmt.Sprintf("### %s\n\n", speakerName(debate, ch1, ch2, debate.ChannelID2)))
			sb.WriteString(debate.Summary2)
			sb.WriteString("\n\n")
		}
	}

	sb.WriteString("---\n\n")
	sb.WriteString("*Exported from channelchat*\n")

	_, err := w.Write([]byte(sb.String()))
	return err
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return "md"
}
