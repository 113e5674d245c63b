package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-conductor/internal/model"
	"github.com/timvw/pane-conductor/internal/observe"
)

var (
	flagCaptureLines int
	flagCaptureAll   bool
	flagCaptureSince int
	flagCaptureRaw   bool
)

var captureCmd = &cobra.Command{
	Use:   "capture <target>",
	Short: "Capture pane output",
	Long: `Capture the output of a pane addressed as session:window.pane and print
it to stdout.

By default the last --lines lines are captured. --all captures the
entire retained history, and --since skips the first N history lines
(for incremental reads after a previous --all). Control sequences are
stripped unless --raw is given.`,
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

		w := observe.Recent(flagCaptureLines)
		switch {
		case flagCaptureAll:
			w = observe.All()
		case cmd.Flags().Changed("since"):
			w = observe.SinceOffset(flagCaptureSince)
		}

		snap, err := observe.New(m).Capture(cmd.Context(), addr, w, !flagCaptureRaw)
		if err != nil {
			return fmt.Errorf("capture %s: %w", addr, err)
		}

		fmt.Fprintln(os.Stdout, snap.Text())
		return nil
	},
}

func init() {
	captureCmd.Flags().IntVar(&flagCaptureLines, "lines", 50, "number of recent lines to capture")
	captureCmd.Flags().BoolVar(&flagCaptureAll, "all", false, "capture the entire retained history")
	captureCmd.Flags().IntVar(&flagCaptureSince, "since", 0, "capture history from this line offset onward")
	captureCmd.Flags().BoolVar(&flagCaptureRaw, "raw", false, "keep control sequences in the output")
	rootCmd.AddCommand(captureCmd)
}
