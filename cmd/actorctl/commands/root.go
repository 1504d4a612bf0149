package commands

import (
	"os"

	btclog "github.com/btcsuite/btclog/v2"
	"github.com/spf13/cobra"

	"github.com/latticeforge/actorcore/actor"
	"github.com/latticeforge/actorcore/group"
	"github.com/latticeforge/actorcore/internal/build"
	"github.com/latticeforge/actorcore/pool"
	"github.com/latticeforge/actorcore/registry"
	"github.com/latticeforge/actorcore/system"
)

var (
	verbose bool
	logFile string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "actorctl",
	Short: "actorctl exercises the actor substrate from the command line",
	Long: `actorctl is a small demonstration client for the actor substrate:
spawning actors, pools, and groups, and driving them with Tell/Ask
traffic so the runtime's behavior can be observed outside of a test
binary.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// setupLogging wires every substrate package's UseLogger to a console
// handler, fanned out to an optional log file via build.HandlerSet, the
// same dual-stream pattern the teacher's daemon wires up at startup.
func setupLogging() error {
	var handlers []btclog.Handler
	handlers = append(handlers, btclog.NewDefaultHandler(os.Stderr))

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		handlers = append(handlers, btclog.NewDefaultHandler(f))
	}

	combined := build.NewHandlerSet(handlers...)
	level := btclog.LevelInfo
	if verbose {
		level = btclog.LevelDebug
	}
	combined.SetLevel(level)

	logger := btclog.NewSLogger(combined)
	actor.UseLogger(logger.WithPrefix("ACTR"))
	pool.UseLogger(logger.WithPrefix("POOL"))
	registry.UseLogger(logger.WithPrefix("REGY"))
	system.UseLogger(logger.WithPrefix("SYST"))
	group.UseLogger(logger.WithPrefix("GRUP"))

	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVar(
		&verbose, "verbose", false,
		"Enable debug-level logging",
	)
	rootCmd.PersistentFlags().StringVar(
		&logFile, "log-file", "",
		"Also write logs to this file, in addition to stderr",
	)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(demoCmd)
}
