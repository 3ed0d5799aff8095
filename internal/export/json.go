package export

import (
	"encoding/json"
	"io"
)

// JSONExporter renders a transcript as indented JSON.
type JSONExporter struct{}

// Export writes the whole transcript as one JSON document.
func (e *JSONExporter) Export(t *Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(t)
}

// Extension returns the file extension for this format.
func (e *JSONExporter) Extension() string { return "json" }
