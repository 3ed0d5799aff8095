package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/halvik/showrunner/internal/agent"
	"github.com/halvik/showrunner/internal/tui"
)

// chatCmd opens the interactive console.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive writers-room console",
	Long: `Open the interactive console. Tab switches between the scriptwriter
and scene-writer surfaces; each keeps its own transcript and streams
replies live. Ctrl+P extracts the structured payload embedded in the
latest reply, when there is one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := agent.NewClient(cfg.AgentBaseURL, slog.Default())
		return tui.Run(client, slog.Default())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
