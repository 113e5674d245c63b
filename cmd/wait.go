package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-conductor/internal/completion"
	"github.com/timvw/pane-conductor/internal/marker"
	"github.com/timvw/pane-conductor/internal/model"
	"github.com/timvw/pane-conductor/internal/observe"
)

var (
	flagWaitTimeout  time.Duration
	flagIdleInterval time.Duration
	flagIdleMarkers  []string
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for a completion signal or an idle pane",
}

var waitSignalCmd = &cobra.Command{
	Use:   "signal <name>",
	Short: "Block until a named signal fires",
	Long: `Block until the named one-shot signal fires or --timeout elapses.

The waiter must be armed before the emitting command runs: start this
command first, then inject the command that chains the signal emission.
A signal with no waiter is dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := getMultiplexer()
		if err != nil {
			return err
		}

		wt := completion.NewSignalWaiter(m).Arm(cmd.Context(), model.CompletionSignal{Name: args[0]})
		if err := wt.Wait(cmd.Context(), flagWaitTimeout); err != nil {
			if completion.IsRecoverable(err) {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
			return err
		}
		return nil
	},
}

var waitIdleCmd = &cobra.Command{
	Use:   "idle <target>",
	Short: "Block until a pane's output looks idle",
	Long: `Sample the recent output of a pane addressed as session:window.pane
until no busy marker appears in two consecutive samples, or --timeout
elapses.

Markers match agent activity indicators: a braille spinner, an
"esc to interrupt" footer, or any literal substring given with
--marker.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := model.ParseAddress(args[0])
		if err != nil {
			return err
		}

		m, err := getMultiplexer()
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		interval := flagIdleInterval
		if interval <= 0 {
			interval = cfg.PollIntervalDuration
		}
		maxWait := flagWaitTimeout
		if maxWait <= 0 {
			maxWait = cfg.PollMaxWaitDuration
		}

		poller := completion.NewPoller(observe.New(m), completion.PollOptions{
			Interval: interval,
			Window:   cfg.PollWindow,
			MaxWait:  maxWait,
		})

		busy := marker.Default()
		if len(flagIdleMarkers) > 0 {
			busy = markerSet(flagIdleMarkers)
		}

		if err := poller.WaitIdle(cmd.Context(), addr, busy); err != nil {
			if completion.IsRecoverable(err) {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
			return err
		}
		return nil
	},
}

func init() {
	waitCmd.PersistentFlags().DurationVar(&flagWaitTimeout, "timeout", 0, "wall-clock bound (0 = unbounded for signal, config default for idle)")
	waitIdleCmd.Flags().DurationVar(&flagIdleInterval, "interval", 0, "pause between samples (default from config)")
	waitIdleCmd.Flags().StringSliceVar(&flagIdleMarkers, "marker", nil, "busy markers: spinner, interrupt-hint, progress, or a literal substring")
	waitCmd.AddCommand(waitSignalCmd)
	waitCmd.AddCommand(waitIdleCmd)
	rootCmd.AddCommand(waitCmd)
}
