package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-conductor/internal/model"
	"github.com/timvw/pane-conductor/internal/topology"
)

var flagSessionScrollback int

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Create or destroy a role session",
}

var sessionUpCmd = &cobra.Command{
	Use:   "up <name> <role>...",
	Short: "Create a detached session with one window per role",
	Long: `Create a detached session whose windows are named after the given
roles, one pane per window. The session's scrollback is provisioned
before the role windows are created so every role pane retains full
history.

The resulting layout works with the window-naming convention: run and
watch resolve roles against it with --session <name>.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		session := args[0]
		roles := make([]model.Role, 0, len(args)-1)
		for _, r := range args[1:] {
			roles = append(roles, model.Role(r))
		}

		sc, err := getMultiplexer()
		if err != nil {
			return err
		}

		topo, err := topology.Bootstrap(cmd.Context(), sc, session, roles, flagSessionScrollback)
		if err != nil {
			return err
		}

		for _, role := range topo.Roles() {
			addr, _ := topo.Resolve(role)
			fmt.Fprintf(os.Stdout, "%s\t%s\n", role, addr)
		}
		return nil
	},
}

var sessionDownCmd = &cobra.Command{
	Use:   "down <name>",
	Short: "Destroy a session and every pane in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := getMultiplexer()
		if err != nil {
			return err
		}
		if err := sc.KillSession(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("kill session %q: %w", args[0], err)
		}
		return nil
	},
}

func init() {
	sessionUpCmd.Flags().IntVar(&flagSessionScrollback, "scrollback", 0, "history-limit for role panes (default from config)")
	sessionCmd.AddCommand(sessionUpCmd)
	sessionCmd.AddCommand(sessionDownCmd)
	rootCmd.AddCommand(sessionCmd)
}
