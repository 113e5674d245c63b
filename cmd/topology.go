package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-conductor/internal/events"
	"github.com/timvw/pane-conductor/internal/model"
	"github.com/timvw/pane-conductor/internal/orchestrator"
	"github.com/timvw/pane-conductor/internal/topology"
)

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Inspect the role mapping",
	Long: `Inspect how roles resolve to panes under the current flags.

The mapping is built the same way run and watch build it: --map flags
first, then the window names of --session (or the ambient session).
The registry lives in the orchestrating process; there is nothing to
register or clear outside of it.`,
}

var topologyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every role and its pane",
	RunE: func(cmd *cobra.Command, args []string) error {
		orc, err := buildResolver(cmd)
		if err != nil {
			return err
		}
		topo := orc.Topology()
		for _, role := range topo.Roles() {
			addr, _ := topo.Resolve(role)
			fmt.Fprintf(os.Stdout, "%s\t%s\n", role, addr)
		}
		return nil
	},
}

var topologyResolveCmd = &cobra.Command{
	Use:   "resolve <role>",
	Short: "Print the pane a role resolves to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orc, err := buildResolver(cmd)
		if err != nil {
			return err
		}
		addr, err := orc.Topology().Resolve(model.Role(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, addr)
		return nil
	},
}

// buildResolver assembles an orchestrator with a populated topology and
// no telemetry, for read-only mapping queries.
func buildResolver(cmd *cobra.Command) (*orchestrator.Orchestrator, error) {
	m, err := getMultiplexer()
	if err != nil {
		return nil, err
	}
	orc := orchestrator.New(m, topology.New(m), events.NewJournal(0), nil, orchestrator.DefaultOptions())
	if err := populateTopology(cmd.Context(), orc, m); err != nil {
		return nil, err
	}
	return orc, nil
}

func init() {
	topologyCmd.AddCommand(topologyShowCmd)
	topologyCmd.AddCommand(topologyResolveCmd)
	rootCmd.AddCommand(topologyCmd)
}
