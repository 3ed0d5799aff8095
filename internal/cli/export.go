package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/halvik/showrunner/internal/agent"
	"github.com/halvik/showrunner/internal/chat"
	"github.com/halvik/showrunner/internal/export"
)

var (
	exportFormat string
	exportOutput string
)

// sessionsExportCmd writes one session transcript to a file or stdout.
var sessionsExportCmd = &cobra.Command{
	Use:   "export <agent> <session-id>",
	Short: "Export one session transcript",
	Long: `Export a saved session transcript in markdown, json, or yaml.

By default the transcript is written to <session-id>.<ext> in the current
directory; use --output to pick a path, or "-" for stdout.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		sessionID := args[1]

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		client := agent.NewClient(cfg.AgentBaseURL, slog.Default())
		messages, err := client.GetSession(cmd.Context(), kind, sessionID)
		if err != nil {
			return fmt.Errorf("fetch session: %w", err)
		}

		turns := make([]chat.Turn, 0, len(messages))
		for _, msg := range messages {
			role := chat.RoleAssistant
			if msg.Role == "user" {
				role = chat.RoleUser
			}
			turns = append(turns, chat.Turn{Role: role, Content: msg.Content})
		}

		transcript := &export.Transcript{
			SessionID:  sessionID,
			Agent:      kind,
			ExportedAt: time.Now().UTC(),
			Turns:      turns,
		}

		if exportOutput == "-" {
			return exporter.Export(transcript, cmd.OutOrStdout())
		}

		path := exportOutput
		if path == "" {
			path = sessionID + "." + exporter.Extension()
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil {
				slog.Warn("failed to close export file", "path", path, "error", closeErr)
			}
		}()

		if err := exporter.Export(transcript, f); err != nil {
			return fmt.Errorf("export session: %w", err)
		}
		fmt.Println(headerStyle.Render("Exported to " + path))
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsExportCmd)
	sessionsExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Export format (md, json, yaml)")
	sessionsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", `Output path ("-" for stdout)`)
}
