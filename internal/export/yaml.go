package export

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLExporter renders a transcript as YAML.
type YAMLExporter struct{}

// Export writes the whole transcript as one YAML document.
func (e *YAMLExporter) Export(t *Transcript, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	return enc.Encode(t)
}

// Extension returns the file extension for this format.
func (e *YAMLExporter) Extension() string { return "yaml" }
