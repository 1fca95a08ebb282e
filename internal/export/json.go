package export

import (
	"encoding/json"
	"io"

	"github.com/channelchat/channelchat/internal/core"
)

// JSONExporter exports debates to JSON format.
type JSONExporter struct{}

// ExportData represents the full export structure.
type ExportData struct {
	Debate   *core.Debate       `json:"debate"`
	Channel1 *core.Channel      `json:"channel_1,omitempty"`
	Channel2 *core.Channel      `json:"channel_2,omitempty"`
	Turns    []*core.DebateTurn `json:"turns"`
}

// Export writes the debate as JSON.
func (e *JSONExporter) Export(debate *core.Debate, ch1, ch2 *core.Channel, turns []*core.DebateTurn, w io.Writer) error {
	data := ExportData{
		Debate:   debate,
		Channel1: ch1,
		Channel2: ch2,
		Turns:    turns,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return "json"
}
