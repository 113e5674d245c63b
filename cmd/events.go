package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-conductor/internal/events"
)

var flagEventSocket string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Collect pushed task events and print them",
	Long: `Listen on a unix datagram socket for task events pushed by panes and
print each event to stdout as a JSON line.

A pane reports an event by chaining a small command after its real
work, e.g.:

  some-long-build; printf '%s' "$EVENT_JSON" | nc -uU "$SOCKET" -w0

Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		socketPath := flagEventSocket
		if socketPath == "" {
			socketPath = events.DefaultSocketPath()
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		journal := events.NewJournal(cfg.EventsTTLDuration)
		collector := events.NewCollector(journal, socketPath)
		if err := collector.Start(ctx); err != nil {
			return fmt.Errorf("event collector: %w", err)
		}
		fmt.Fprintf(os.Stderr, "event collector: listening on %s\n", collector.SocketPath())

		enc := json.NewEncoder(os.Stdout)
		seen := 0
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				all := journal.Snapshot(time.Now().UTC())
				if seen > len(all) {
					seen = len(all)
				}
				for _, e := range all[seen:] {
					if err := enc.Encode(e); err != nil {
						return err
					}
				}
				seen = len(all)
			}
		}
	},
}

func init() {
	eventsCmd.Flags().StringVar(&flagEventSocket, "event-socket", "", "unix datagram socket path (default: per-user runtime dir)")
	rootCmd.AddCommand(eventsCmd)
}
