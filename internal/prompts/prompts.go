// Package prompts defines the stage prompt templates used to frame each
// generation call.
package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/channelchat/channelchat/internal/core"
)

// TurnData is the template payload for a single turn's prompt.
type TurnData struct {
	SpeakerName      string
	OpponentName     string
	TopicTitle       string
	TopicDescription string
	SpeakerContext   string
	OpponentContext  string
	Transcript       string
	UserContent      string
}

const turnPreamble = `You are the AI persona of the YouTube channel "{{.SpeakerName}}". You speak in the channel's voice, grounded in its transcripts. You are in a scripted debate with the persona of "{{.OpponentName}}" on the topic: "{{.TopicTitle}}"

Topic description: {{.TopicDescription}}

Relevant material from your channel:
{{if .SpeakerContext}}{{.SpeakerContext}}{{else}}(none available){{end}}

Relevant material from your opponent's channel:
{{if .OpponentContext}}{{.OpponentContext}}{{else}}(none available){{end}}
{{if .Transcript}}
The debate so far:
{{.Transcript}}
{{end}}{{if .UserContent}}
The audience added: {{.UserContent}}
{{end}}`

var stageInstructions = map[core.Stage]string{
	core.StageIntro: `Open the debate. Introduce your channel's perspective on the topic and stake out a clear position in 1-2 short paragraphs. Stay in character.`,

	core.StageResponse: `Respond to your opponent's latest point. Push back where you disagree, concede where they are right, and bring in your channel's material where it helps. Keep it to 1-2 short paragraphs and stay in character.`,

	core.StageConclusion: `The debate is wrapping up. Give your closing statement: summarize your position, acknowledge the strongest point made against it, and end decisively. One short paragraph. Stay in character.`,
}

const topicsPromptText = `Two YouTube channel personas are about to hold a debate.

Channel 1 is "{{.Channel1Name}}". Its interests:
{{.Channel1Interests}}

Channel 2 is "{{.Channel2Name}}". Its interests:
{{.Channel2Interests}}

Propose exactly 3 debate topics both channels would have strong, conflicting opinions about. Respond with ONLY a numbered list, one topic per line, in the form:

1. Topic Title Here: One or two sentence description of the topic.

No other text.`

const interestsPromptText = `Below are transcript excerpts from the YouTube channel "{{.ChannelName}}".

{{.Excerpts}}

Identify the {{.Count}} main recurring interests of this channel. Respond with ONLY a numbered list, one interest per line, in the form:

1. Interest Title Here: One or two sentence description of the interest.

No other text.`

var (
	turnTemplates     map[core.Stage]*template.Template
	topicsTemplate    *template.Template
	interestsTemplate *template.Template
)

func init() {
	turnTemplates = make(map[core.Stage]*template.Template)
	for stage, instr := range stageInstructions {
		turnTemplates[stage] = template.Must(template.New(string(stage)).Parse(turnPreamble + "\n" + instr))
	}
	topicsTemplate = template.Must(template.New("topics").Parse(topicsPromptText))
	interestsTemplate = template.Must(template.New("interests").Parse(interestsPromptText))
}

// RenderTurn renders the prompt for one turn at the given stage.
func RenderTurn(stage core.Stage, data TurnData) (string, error) {
	tmpl, ok := turnTemplates[stage]
	if !ok {
		return "", fmt.Errorf("unknown stage: %s", stage)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", stage, err)
	}
	return buf.String(), nil
}

// TopicsData is the template payload for topic generation.
type TopicsData struct {
	Channel1Name      string
	Channel1Interests string
	Channel2Name      string
	Channel2Interests string
}

// RenderTopics renders the topic-generation prompt.
func RenderTopics(data TopicsData) (string, error) {
	var buf bytes.Buffer
	if err := topicsTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render topics prompt: %w", err)
	}
	return buf.String(), nil
}

// InterestsData is the template payload for lazy interest population.
type InterestsData struct {
	ChannelName string
	Excerpts    string
	Count       int
}

// RenderInterests renders the interest-extraction prompt.
func RenderInterests(data InterestsData) (string, error) {
	var buf bytes.Buffer
	if err := interestsTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render interests prompt: %w", err)
	}
	return buf.String(), nil
}

// FormatInterests renders interest records as prompt-ready lines.
func FormatInterests(interests []*core.Interest) string {
	if len(interests) == 0 {
		return "(no recorded interests)"
	}
	var sb strings.Builder
	for _, in := range interests {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", in.Title, in.Description))
	}
	return strings.TrimRight(sb.String(), "\n")
}
