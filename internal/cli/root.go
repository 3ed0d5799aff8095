// Package cli wires the showrunner commands: the interactive console, the
// session tooling, and the bundled reference backend.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/halvik/showrunner/internal/config"
)

var (
	verbose bool
	cfg     *config.Config

	version string = "dev"
	commit  string = "unknown"
	date    string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "showrunner",
	Short: "Streaming console for the scriptwriter and scene-writer agents",
	Long: `showrunner is a terminal console for the writers-room agents.

It drives two independent chat surfaces — a scriptwriter and a
scene-writer — over the agent backend's streaming API, keeps a combined
feed of saved sessions from both, and can export any session transcript.

Quick Start:
  showrunner chat                             # Open the interactive console
  showrunner sessions list                    # Combined session feed
  showrunner sessions show scriptwriter <id>  # Print one transcript
  showrunner sessions export scriptwriter <id> --format md
  showrunner serve                            # Run the reference backend`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		// Logs go to stderr so they never tear the console UI.
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)

		if err := godotenv.Load(); err != nil {
			slog.Info("No .env file found, using environment variables")
		}

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
