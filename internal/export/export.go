// Package export renders a loaded conversation transcript in portable
// formats for sharing outside the console.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/halvik/showrunner/internal/agent"
	"github.com/halvik/showrunner/internal/chat"
)

// Transcript is the exportable view of one conversation.
type Transcript struct {
	SessionID  string      `json:"session_id" yaml:"session_id"`
	Agent      agent.Kind  `json:"agent" yaml:"agent"`
	ExportedAt time.Time   `json:"exported_at" yaml:"exported_at"`
	Turns      []chat.Turn `json:"turns" yaml:"turns"`
}

// Exporter writes a transcript in one output format.
type Exporter interface {
	Export(t *Transcript, w io.Writer) error
	Extension() string
}

// NewExporter returns the exporter for format.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: md, json, yaml)", format)
	}
}
