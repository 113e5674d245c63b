package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-conductor/internal/completion"
	"github.com/timvw/pane-conductor/internal/events"
	"github.com/timvw/pane-conductor/internal/marker"
	"github.com/timvw/pane-conductor/internal/model"
	"github.com/timvw/pane-conductor/internal/orchestrator"
	"github.com/timvw/pane-conductor/internal/topology"
)

var (
	flagRunMode    string
	flagRunWait    string
	flagRunTimeout time.Duration
	flagRunLines   int
	flagRunMarkers []string
)

var runCmd = &cobra.Command{
	Use:   "run <role> <command>",
	Short: "Run a command in a role's pane and capture the result",
	Long: `Run a command in the pane bound to a role, wait for it to complete,
and print the captured output.

With --wait signal (the default) the command is chained with a
completion signal and the run blocks until the signal fires or
--timeout elapses. With --wait poll the run samples the pane's recent
output until it looks idle.

On a timeout or an exhausted poll the pane keeps running; the exit
status is non-zero and the pane's partial output can still be captured
with the capture command.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, command := args[0], args[1]

		mode, err := parseMode(flagRunMode)
		if err != nil {
			return err
		}
		strategy, err := parseStrategy(flagRunWait)
		if err != nil {
			return err
		}

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
		orc := orchestrator.New(m, topology.New(m), journal, tel, orchestratorOptions(cfg))
		if err := populateTopology(ctx, orc, m); err != nil {
			return err
		}

		var busy completion.BusyFunc
		if len(flagRunMarkers) > 0 {
			busy = markerSet(flagRunMarkers)
		}

		snap, err := orc.RunTask(ctx, orchestrator.TaskRequest{
			Role:         model.Role(role),
			Command:      command,
			Mode:         mode,
			Strategy:     strategy,
			Busy:         busy,
			Timeout:      flagRunTimeout,
			CaptureLines: flagRunLines,
		})
		if err != nil {
			if completion.IsRecoverable(err) {
				fmt.Fprintf(os.Stderr, "warning: %v (pane still running, capture later)\n", err)
			}
			return err
		}

		fmt.Fprintln(os.Stdout, snap.Text())
		return nil
	},
}

// markerSet builds a busy predicate from --marker flag values.
func markerSet(names []string) completion.BusyFunc {
	var funcs []completion.BusyFunc
	for _, name := range names {
		switch name {
		case "spinner":
			funcs = append(funcs, marker.Spinner())
		case "interrupt-hint":
			funcs = append(funcs, marker.InterruptHint())
		case "progress":
			funcs = append(funcs, marker.Progress())
		default:
			funcs = append(funcs, marker.Contains(name))
		}
	}
	return marker.Any(funcs...)
}

func init() {
	runCmd.Flags().StringVar(&flagRunMode, "mode", "interpreted", "payload encoding: interpreted, literal")
	runCmd.Flags().StringVar(&flagRunWait, "wait", "signal", "completion strategy: signal, poll")
	runCmd.Flags().DurationVar(&flagRunTimeout, "timeout", 0, "signal-wait bound (default from config)")
	runCmd.Flags().IntVar(&flagRunLines, "lines", 0, "result window in lines (default from config)")
	runCmd.Flags().StringSliceVar(&flagRunMarkers, "marker", nil, "busy markers for --wait poll: spinner, interrupt-hint, progress, or a literal substring")
	rootCmd.AddCommand(runCmd)
}
