package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-conductor/internal/completion"
	"github.com/timvw/pane-conductor/internal/config"
	"github.com/timvw/pane-conductor/internal/inject"
	"github.com/timvw/pane-conductor/internal/model"
	"github.com/timvw/pane-conductor/internal/mux"
	"github.com/timvw/pane-conductor/internal/orchestrator"
	telem "github.com/timvw/pane-conductor/internal/otel"
	"github.com/timvw/pane-conductor/internal/topology"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	// Global flags.
	flagMux     string
	flagSession string
	flagMaps    []string
)

var rootCmd = &cobra.Command{
	Use:   "pane-conductor",
	Short: "Drive terminal multiplexer panes as command targets",
	Long: `pane-conductor treats terminal multiplexer panes as addressable command
targets. It injects commands into panes by logical role, waits for
completion (a chained signal or an idle poll), and captures the output.

Roles map to panes either explicitly (--map role=session:window.pane)
or by convention: every window of --session whose name matches a role
name is that role's pane.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&flagMux, "mux", envOrDefault("PANE_CONDUCTOR_MUX", ""), "terminal multiplexer: tmux (default: auto-detect)")
	rootCmd.PersistentFlags().StringVar(&flagSession, "session", "", "session whose windows map to roles by name (default: ambient session)")
	rootCmd.PersistentFlags().StringArrayVar(&flagMaps, "map", nil, "explicit role mapping role=session:window.pane (repeatable)")
}

// getMultiplexer returns the configured or auto-detected multiplexer.
func getMultiplexer() (mux.SessionController, error) {
	if flagMux != "" {
		return mux.FromName(flagMux)
	}
	return mux.Detect()
}

// loadConfig loads configuration and reports the source file when one
// was used.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.ConfigFile != "" {
		fmt.Fprintf(os.Stderr, "config: loaded %s\n", cfg.ConfigFile)
	}
	return cfg, nil
}

// initTelemetry wires OTEL from config. Returns nil when no endpoint is
// configured.
func initTelemetry(ctx context.Context, cfg *config.Config) *telem.Telemetry {
	telem.Version = Version
	tel, err := telem.Init(ctx, telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: otel init failed: %v\n", err)
		return nil
	}
	return tel
}

// orchestratorOptions translates config into task tuning.
func orchestratorOptions(cfg *config.Config) orchestrator.Options {
	opts := orchestrator.DefaultOptions()
	opts.Inject = inject.Options{
		Debounce:      cfg.DebounceDuration,
		SubmitRetries: cfg.SubmitRetries,
		LockTimeout:   cfg.LockTimeoutDuration,
	}
	opts.SignalTimeout = cfg.SignalTimeoutDuration
	opts.Poll = completion.PollOptions{
		Interval: cfg.PollIntervalDuration,
		Window:   cfg.PollWindow,
		MaxWait:  cfg.PollMaxWaitDuration,
	}
	opts.CaptureLines = cfg.CaptureLines
	opts.LockTimeout = cfg.LockTimeoutDuration
	return opts
}

// populateTopology registers roles on orc from --map flags, then from
// the window names of --session (or the ambient session when neither is
// given). Explicit mappings win over the window convention.
func populateTopology(ctx context.Context, orc *orchestrator.Orchestrator, m mux.Multiplexer) error {
	topo := orc.Topology()

	session := flagSession
	if session == "" && len(flagMaps) == 0 {
		ambient, err := topo.CurrentSession(ctx)
		if err != nil {
			return err
		}
		session = ambient
	}

	explicit := make(map[model.Role]bool)
	for _, mapping := range flagMaps {
		role, target, ok := strings.Cut(mapping, "=")
		if !ok || role == "" {
			return fmt.Errorf("invalid --map %q (want role=session:window.pane)", mapping)
		}
		addr, err := model.ParseAddress(target)
		if err != nil {
			return fmt.Errorf("invalid --map %q: %w", mapping, err)
		}
		if err := orc.Register(model.Role(role), addr); err != nil {
			return err
		}
		explicit[model.Role(role)] = true
	}

	if session == "" {
		return nil
	}

	panes, err := m.ListPanes(ctx, session)
	if err != nil {
		return fmt.Errorf("list panes of %q: %w", session, err)
	}
	for _, p := range panes {
		role := model.Role(p.Window)
		if explicit[role] || p.Pane != 0 {
			continue
		}
		if err := orc.Register(role, p); err != nil {
			var span *topology.SessionSpanError
			if errors.As(err, &span) {
				continue
			}
			return err
		}
	}
	return nil
}

// parseMode maps a --mode flag value to a payload mode.
func parseMode(s string) (model.Mode, error) {
	switch s {
	case "", "interpreted":
		return model.ModeInterpreted, nil
	case "literal":
		return model.ModeLiteral, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (supported: interpreted, literal)", s)
	}
}

// parseStrategy maps a --wait flag value to a completion strategy.
func parseStrategy(s string) (orchestrator.Strategy, error) {
	switch s {
	case "", "signal":
		return orchestrator.SignalWait, nil
	case "poll":
		return orchestrator.IdlePoll, nil
	default:
		return "", fmt.Errorf("unknown wait strategy %q (supported: signal, poll)", s)
	}
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
