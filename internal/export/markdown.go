package export

import (
	"fmt"
	"io"
)

// MarkdownExporter renders a transcript as a Markdown document.
type MarkdownExporter struct{}

// Export writes the transcript with one heading block per turn.
func (e *MarkdownExporter) Export(t *Transcript, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# Session %s\n\n", t.SessionID); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "**Agent:** %s  \n**Turns:** %d\n\n---\n\n", t.Agent, len(t.Turns)); err != nil {
		return err
	}

	for i, turn := range t.Turns {
		if _, err := fmt.Fprintf(w, "**%s:**\n\n%s\n\n", turn.Role, turn.Content); err != nil {
			return err
		}
		if i < len(t.Turns)-1 {
			if _, err := fmt.Fprint(w, "---\n\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// Extension returns the file extension for this format.
func (e *MarkdownExporter) Extension() string { return "md" }
