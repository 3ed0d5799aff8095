package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/halvik/showrunner/internal/agent"
	"github.com/halvik/showrunner/internal/chat"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	roleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage saved agent sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions of both agents, newest first",
	Long: `List the saved sessions of the scriptwriter and scene-writer agents as
one combined feed ordered by last activity. If one agent's listing is
unavailable, the other's sessions are still shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := agent.NewClient(cfg.AgentBaseURL, slog.Default())
		dir := chat.NewDirectory(client, map[agent.Kind]*chat.Conversation{}, slog.Default())
		dir.Refresh(cmd.Context())

		entries := dir.Combined()
		if len(entries) == 0 {
			fmt.Println(headerStyle.Render("No saved sessions"))
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("Found %d session(s)", len(entries))))
		fmt.Println()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, titleStyle.Render("Agent")+"\t"+titleStyle.Render("ID")+"\t"+titleStyle.Render("Last activity")+"\t"+titleStyle.Render("Preview")+"\t")
		for _, entry := range entries {
			preview := entry.Preview
			if len(preview) > 50 {
				preview = preview[:47] + "..."
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
				kindStyle.Render(string(entry.Kind)),
				idStyle.Render(entry.SessionID),
				dateStyle.Render(formatWhen(entry.LastActivity)),
				preview,
			)
		}
		return w.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <agent> <session-id>",
	Short: "Print one session's transcript",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}

		client := agent.NewClient(cfg.AgentBaseURL, slog.Default())
		messages, err := client.GetSession(cmd.Context(), kind, args[1])
		if err != nil {
			return fmt.Errorf("fetch session: %w", err)
		}
		if len(messages) == 0 {
			fmt.Println(headerStyle.Render("Session is empty or unknown"))
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%s · %s", kind, args[1])))
		fmt.Println()
		for _, msg := range messages {
			fmt.Println(roleStyle.Render(msg.Role + ":"))
			fmt.Println(msg.Content)
			fmt.Println()
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <agent> <session-id>",
	Short: "Delete one saved session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}

		client := agent.NewClient(cfg.AgentBaseURL, slog.Default())
		if err := client.DeleteSession(cmd.Context(), kind, args[1]); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		fmt.Println(headerStyle.Render("Deleted " + args[1]))
		return nil
	},
}

func parseKind(raw string) (agent.Kind, error) {
	kind := agent.Kind(raw)
	if !kind.Valid() {
		names := make([]string, 0, len(agent.Kinds()))
		for _, k := range agent.Kinds() {
			names = append(names, string(k))
		}
		return "", fmt.Errorf("unknown agent %q (expected one of: %s)", raw, strings.Join(names, ", "))
	}
	return kind, nil
}

// formatWhen renders a unix timestamp the way humans scan lists: relative
// formats for recent activity, plain dates for old ones.
func formatWhen(unix int64) string {
	if unix <= 0 {
		return "—"
	}
	t := time.Unix(unix, 0)
	diff := time.Since(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}
