// Command cloudiagent is a chat agent that turns image-editing requests into
// Cloudinary delivery URLs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloudiagent/cloudiagent/internal/agent"
	"github.com/cloudiagent/cloudiagent/internal/config"
	"github.com/cloudiagent/cloudiagent/internal/logging"
)

var (
	configDir string
	logLevel  string
	verbose   bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cloudiagent",
	Short: "Cloudi-Agent - edit hosted images by chatting",
	Long: `Cloudi-Agent turns natural-language image-editing requests into
Cloudinary transformation URLs. Each request is routed through a completion
model that picks one tool (resize, removeBackground, generateFill, ...);
the tool call is validated and encoded into a deterministic descriptor.

Run without arguments to start the interactive chat.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, format := logLevel, ""
		// A broken config is reported by the command that needs it.
		if cfg, err := config.New(configDir); err == nil {
			if level == "" {
				level = cfg.LogLevel
			}
			format = cfg.LogFormat
		}
		if verbose {
			level = "debug"
		}
		var err error
		logger, err = logging.New(level, format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default $CLOUDIAGENT_CONFIG_DIR, ./.cloudiagent or ~/.config/cloudiagent)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, chatCmd, dispatchCmd, toolsCmd, explainCmd, initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps dispatch failures to distinct statuses; anything else is 1.
func exitCode(err error) int {
	var e *agent.Error
	if errors.As(err, &e) {
		return e.Kind.ExitCode()
	}
	return 1
}

// loadConfig reads env and config.yaml and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.New(configDir)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (run `cloudiagent init` or set the environment)", err)
	}
	return cfg, nil
}
