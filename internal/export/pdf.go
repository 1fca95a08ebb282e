package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/channelchat/channelchat/internal/core"
)

// PDFExporter exports debates to PDF format.
type PDFExporter struct{}

// Export writes the debate as PDF.
func (e *PDFExporter) Export(debate *core.Debate, ch1, ch2 *core.Channel, turns []*core.DebateTurn, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 10, e.sanitizeText(debate.TopicTitle), "", "C", false)
	pdf.Ln(5)

	// Metadata section
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Debate Information")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	e.addMetadataRow(pdf, "ID:", debate.ID)
	e.addMetadataRow(pdf, "Status:", string(debate.Status))
	e.addMetadataRow(pdf, "Created:", debate.CreatedAt.Format("January 2, 2006 at 3:04 PM"))
	if debate.ConcludedAt != nil {
		e.addMetadataRow(pdf, "Concluded:", debate.ConcludedAt.Format("January 2, 2006 at 3:04 PM"))
		e.addMetadataRow(pdf, "Duration:", formatDuration(debate.CreatedAt, *debate.ConcludedAt))
	}
	pdf.Ln(5)

	// Participants section
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Participants")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	e.addParticipantBox(pdf, "Channel 1", ch1, debate.ChannelID1, 200, 230, 255) // Light blue
	pdf.Ln(3)
	e.addParticipantBox(pdf, "Channel 2", ch2, debate.ChannelID2, 200, 255, 200) // Light green
	pdf.Ln(8)

	// Debate content
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Debate")
	pdf.Ln(8)

	if len(turns) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(0, 6, "No turns recorded.")
		pdf.Ln(6)
	} else {
		for _, turn := range turns {
			isChannel1 := turn.ChannelID == debate.ChannelID1
			name := speakerName(debate, ch1, ch2, turn.ChannelID)

			if pdf.GetY() > 250 {
				pdf.AddPage()
			}

			if isChannel1 {
				pdf.SetFillColor(200, 230, 255) // Light blue
			} else {
				pdf.SetFillColor(200, 255, 200) // Light green
			}

			pdf.SetFont("Arial", "B", 10)
			header := fmt.Sprintf("Turn %d - %s (%s)", turn.Position+1, name, turn.CreatedAt.Format("3:04 PM"))
			pdf.CellFormat(0, 7, header, "", 1, "", true, 0, "")

			pdf.SetFont("Arial", "", 9)
			pdf.SetFillColor(255, 255, 255)
			pdf.MultiCell(0, 5, e.sanitizeText(turn.Content), "", "", false)
			pdf.Ln(5)
		}
	}

	// Closing statements
	if debate.Summary1 != "" || debate.Summary2 != "" {
		if pdf.GetY() > 230 {
			pdf.AddPage()
		}

		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, "Closing Statements")
		pdf.Ln(8)

		if debate.Summary1 != "" {
			pdf.SetFont("Arial", "B", 10)
			pdf.Cell(0, 6, fmt.Sprintf("%s:", speakerName(debate, ch1, ch2, debate.ChannelID1)))
			pdf.Ln(6)
			pdf.SetFont("Arial", "", 9)
			pdf.MultiCell(0, 5, e.sanitizeText(debate.Summary1), "", "", false)
			pdf.Ln(3)
		}
		if debate.Summary2 != "" {
			pdf.SetFont("Arial", "B", 10)
			pdf.Cell(0, 6, fmt.Sprintf("%s:", speakerName(debate, ch1, ch2, debate.ChannelID2)))
			pdf.Ln(6)
			pdf.SetFont("Arial", "", 9)
			pdf.MultiCell(0, 5, e.sanitizeText(debate.Summary2), "", "", false)
			pdf.Ln(3)
		}
	}

	// Footer
	pdf.SetY(-15)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 10, "Exported from channelchat", "", 0, "C", false, 0, "")

	return pdf.Output(w)
}

// FileExtension returns the file extension for PDF.
func (e *PDFExporter) FileExtension() string {
	return "pdf"
}

// Helper to add a metadata row
func (e *PDFExporter) addMetadataRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(30, 5, label)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 5, value)
	pdf.Ln(5)
}

// Helper to add a participant box
func (e *PDFExporter) addParticipantBox(pdf *gofpdf.Fpdf, slot string, ch *core.Channel, channelID string, r, g, b int) {
	pdf.SetFillColor(r, g, b)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, slot, "", 1, "", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetFillColor(255, 255, 255)
	name := channelID
	title := ""
	if ch != nil {
		name = ch.Name
		title = ch.Title
	}
	pdf.Cell(25, 5, "Name:")
	pdf.Cell(0, 5, e.sanitizeText(name))
	pdf.Ln(5)
	if title != "" {
		pdf.Cell(25, 5, "Title:")
		pdf.Cell(0, 5, e.sanitizeText(title))
		pdf.Ln(5)
	}
	pdf.Cell(25, 5, "ID:")
	pdf.Cell(0, 5, channelID)
	pdf.Ln(5)
}

// Sanitize text for PDF (remove problematic characters)
func (e *PDFExporter) sanitizeText(text string) string {
	// gofpdf uses Windows-1252 encoding by default
	replacer := strings.NewReplacer(
		"‘", "'", // Left single quote
		"’", "'", // Right single quote
		"“", "\"", // Left double quote
		"”", "\"", // Right double quote
		"–", "-", // En dash
		"—", "--", // Em dash
		"…", "...", // Ellipsis
		"•", "*", // Bullet
		" ", " ", // Non-breaking space
	)
	return replacer.Replace(text)
}
