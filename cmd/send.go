package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-conductor/internal/inject"
	"github.com/timvw/pane-conductor/internal/model"
)

var (
	flagSendMode  string
	flagSendKey   bool
	flagSendSplit bool
)

var sendCmd = &cobra.Command{
	Use:   "send <target> <text>",
	Short: "Inject text into a pane without waiting",
	Long: `Inject text into a pane addressed as session:window.pane and submit it.
No completion wait and no capture happen; use run for the full cycle.

With --key the argument is a single named key (e.g. "Enter", "Escape",
"C-c") pressed as-is, without submission.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := model.ParseAddress(args[0])
		if err != nil {
			return err
		}

		m, err := getMultiplexer()
		if err != nil {
			return err
		}

		if flagSendKey {
			return m.SendKey(cmd.Context(), addr.String(), args[1])
		}

		mode, err := parseMode(flagSendMode)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		injector := inject.New(m, inject.Options{
			Debounce:      cfg.DebounceDuration,
			SubmitRetries: cfg.SubmitRetries,
			LockTimeout:   cfg.LockTimeoutDuration,
		})
		err = injector.Dispatch(cmd.Context(), addr, model.CommandPayload{
			Text:       args[1],
			Mode:       mode,
			SplitLines: flagSendSplit,
		})
		if err != nil {
			return fmt.Errorf("dispatch to %s: %w", addr, err)
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&flagSendMode, "mode", "interpreted", "payload encoding: interpreted, literal")
	sendCmd.Flags().BoolVar(&flagSendKey, "key", false, "press a single named key instead of typing text")
	sendCmd.Flags().BoolVar(&flagSendSplit, "split-lines", false, "submit each line of the text separately")
	rootCmd.AddCommand(sendCmd)
}
