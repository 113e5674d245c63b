package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-conductor/internal/events"
	"github.com/timvw/pane-conductor/internal/orchestrator"
	"github.com/timvw/pane-conductor/internal/topology"
	"github.com/timvw/pane-conductor/internal/watch"
)

var (
	flagWatchTheme   string
	flagWatchRefresh time.Duration
	flagWatchSocket  string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Interactive TUI over the role panes",
	Long: `Launch an interactive terminal UI showing every role's pane, its busy
state, and the last line of its output. A command typed at the prompt
is dispatched to the selected role and its lifecycle appears in the
event tail at the bottom.

Roles resolve the same way as for run: --map flags first, then the
window names of --session (or the ambient session).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := getMultiplexer()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		tel := initTelemetry(ctx, cfg)
		if tel != nil {
			defer tel.Shutdown(ctx)
		}

		journal := events.NewJournal(cfg.EventsTTLDuration)

		socketPath := flagWatchSocket
		if socketPath == "" {
			socketPath = cfg.EventsSocket
		}
		if socketPath == "" {
			socketPath = events.DefaultSocketPath()
		}
		collector := events.NewCollector(journal, socketPath)
		if err := collector.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: event collector: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "event collector: listening on %s\n", collector.SocketPath())
		}

		orc := orchestrator.New(m, topology.New(m), journal, tel, orchestratorOptions(cfg))
		if err := populateTopology(ctx, orc, m); err != nil {
			return err
		}

		tui := &watch.TUI{
			Orchestrator:    orc,
			Journal:         journal,
			RefreshInterval: flagWatchRefresh,
			ThemeName:       flagWatchTheme,
		}
		return tui.Run(ctx)
	},
}

func init() {
	watchCmd.Flags().StringVar(&flagWatchTheme, "theme", "dark", "color theme: dark, light")
	watchCmd.Flags().DurationVar(&flagWatchRefresh, "refresh", 2*time.Second, "pane refresh interval")
	watchCmd.Flags().StringVar(&flagWatchSocket, "event-socket", "", "unix datagram socket path for pushed events")
	rootCmd.AddCommand(watchCmd)
}
