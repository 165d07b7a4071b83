package cli

import (
	"context"
	"fmt"

	"boatnav/cmd/navigator"
	"boatnav/cmd/recorder"

	"github.com/spf13/cobra"
)

const (
	ModeNavigator = "navigator"
	ModeRecorder  = "recorder"
)

// Runners are the service entry points the commands dispatch to.
type Runners struct {
	Navigator func(ctx context.Context, configPath string, maxConcurrent int) error
	Recorder  func(ctx context.Context, configPath string, prefetch int) error
}

// DefaultRunners wires the commands to the real services.
func DefaultRunners() Runners {
	return Runners{Navigator: navigator.Run, Recorder: recorder.Run}
}

// NewRootCmd builds the boatnav command tree.
func NewRootCmd(run Runners) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "boatnav",
		Short: "On-board trip navigation and trip archive",
		Long: `boatnav runs one of two services:

  navigator   polls the boat's sensors, runs the trip engine and serves the dashboard API
  recorder    consumes trip status and trip logs from the broker and archives them in Postgres`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to the YAML config file")

	root.AddCommand(navigatorCmd(&configPath, run.Navigator), recorderCmd(&configPath, run.Recorder))
	return root
}

func navigatorCmd(configPath *string, run func(context.Context, string, int) error) *cobra.Command {
	var maxConc int
	cmd := &cobra.Command{
		Use:     ModeNavigator,
		Aliases: []string{"nav", "n"},
		Short:   "Trip engine, sensor polling and dashboard API",
		Example: "  boatnav navigator --config=./config.yaml --max-concurrent=64",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if maxConc < 1 {
				return fmt.Errorf("--max-concurrent must be >= 1")
			}
			return run(cmd.Context(), *configPath, maxConc)
		},
	}
	cmd.Flags().IntVar(&maxConc, "max-concurrent", 64, "Maximum number of concurrent HTTP requests to process")
	return cmd
}

func recorderCmd(configPath *string, run func(context.Context, string, int) error) *cobra.Command {
	var prefetch int
	cmd := &cobra.Command{
		Use:     ModeRecorder,
		Aliases: []string{"rec", "r"},
		Short:   "Archive trip status and trip logs in Postgres",
		Example: "  boatnav recorder --config=./config.yaml --prefetch=8",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if prefetch <= 0 {
				return fmt.Errorf("--prefetch must be > 0")
			}
			return run(cmd.Context(), *configPath, prefetch)
		},
	}
	cmd.Flags().IntVar(&prefetch, "prefetch", 8, "Broker prefetch count for consumer channels")
	return cmd
}
