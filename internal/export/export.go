// Package export serializes a conversation transcript into downloadable
// documents. The byte-level output of both formats is part of the observable
// contract.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/serene-mind/companion-api/internal/model"
)

// Format is a supported export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatTxt      Format = "txt"
)

// ErrUnknownFormat is returned for formats other than markdown and txt.
var ErrUnknownFormat = errors.New("unknown export format")

// Document is a rendered export, discarded after download.
type Document struct {
	Content    string    `json:"content"`
	Format     Format    `json:"format"`
	ExportedAt time.Time `json:"exported_at"`
}

// timestampLayout approximates the locale formatting of the web client.
const timestampLayout = "1/2/2006, 3:04:05 PM"

const reflectionNote = "This conversation is meant for personal reflection and is not a substitute for professional mental health support."

// txtSeparator divides messages in the plain-text rendition.
const txtSeparator = "---------------------------------------------"

// Exporter renders transcripts. The clock is injectable so output is
// deterministic under test.
type Exporter struct {
	now func() time.Time
}

// NewExporter creates an exporter using the wall clock.
func NewExporter() *Exporter {
	return &Exporter{now: time.Now}
}

// NewExporterWithClock creates an exporter with a fixed clock.
func NewExporterWithClock(now func() time.Time) *Exporter {
	return &Exporter{now: now}
}

// ParseFormat validates a client-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatMarkdown, FormatTxt:
		return Format(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Export renders the message list in the requested format.
func (e *Exporter) Export(messages []model.Message, format Format) (Document, error) {
	exportedAt := e.now()
	switch format {
	case FormatMarkdown:
		return Document{Content: renderMarkdown(messages, exportedAt), Format: format, ExportedAt: exportedAt}, nil
	case FormatTxt:
		return Document{Content: renderTxt(messages, exportedAt), Format: format, ExportedAt: exportedAt}, nil
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func renderMarkdown(messages []model.Message, exportedAt time.Time) string {
	var b strings.Builder

	b.WriteString("# Serene Mind Chat\n\n")
	fmt.Fprintf(&b, "*Exported on: %s*\n\n", exportedAt.Format(timestampLayout))

	for _, msg := range messages {
		sender := "🌱 **Serene Mind**"
		if msg.Sender == model.SenderUser {
			sender = "🌟 **You**"
		}

		fmt.Fprintf(&b, "## %s - %s\n\n", sender, formatTimestamp(msg.Timestamp))
		fmt.Fprintf(&b, "%s\n\n", msg.Text)
		b.WriteString("---\n\n")
	}

	fmt.Fprintf(&b, "\n\n*%s*", reflectionNote)
	return b.String()
}

func renderTxt(messages []model.Message, exportedAt time.Time) string {
	var b strings.Builder

	b.WriteString("SERENE MIND CHAT\n\n")
	fmt.Fprintf(&b, "Exported on: %s\n\n", exportedAt.Format(timestampLayout))

	for _, msg := range messages {
		sender := "Serene Mind"
		if msg.Sender == model.SenderUser {
			sender = "You"
		}

		fmt.Fprintf(&b, "%s - %s\n", sender, formatTimestamp(msg.Timestamp))
		fmt.Fprintf(&b, "%s\n\n", msg.Text)
		b.WriteString(txtSeparator + "\n\n")
	}

	fmt.Fprintf(&b, "\n%s", reflectionNote)
	return b.String()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timestampLayout)
}

// FileName maps a format to the download filename for the given day.
func FileName(format Format, date time.Time) string {
	name := "serene-mind-chat-" + date.Format("2006-01-02")
	if format == FormatMarkdown {
		return name + ".md"
	}
	return name + ".txt"
}

// ContentType maps a format to its MIME type.
func ContentType(format Format) string {
	if format == FormatMarkdown {
		return "text/markdown;charset=utf-8"
	}
	return "text/plain;charset=utf-8"
}
