package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [session]",
	Short: "List pane targets",
	Long: `List pane targets, one per line, in session:window.pane form.

With a session argument only that session's panes are listed; without
one the ambient session is used. Each line can be passed to capture,
send, and wait idle.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := getMultiplexer()
		if err != nil {
			return err
		}

		session := ""
		if len(args) == 1 {
			session = args[0]
		}
		if session == "" {
			session, err = m.CurrentSession(cmd.Context())
			if err != nil {
				return fmt.Errorf("no session given and no ambient session: %w", err)
			}
		}

		panes, err := m.ListPanes(cmd.Context(), session)
		if err != nil {
			return fmt.Errorf("list panes of %q: %w", session, err)
		}
		for _, p := range panes {
			fmt.Println(p.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
