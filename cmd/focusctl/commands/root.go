package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/audiofocus/pkg/cli"
)

const appName = "focusctl"

var (
	cfgFile      string
	contextName  string
	logLevel     string
	globalConfig *cli.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "focusctl",
	Short: "Audio focus simulator and server",
	Long: `focusctl drives a system-wide audio focus stack.

It runs scenario files against a real focus manager, serves a live manager
over websocket and inspects the persistent focus journal.

Configuration is stored in ~/.audiofocus/focusctl/ and supports multiple
contexts, each with its own journal directory, listen address and defaults.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command returns the root cobra command for mounting into a parent CLI.
func Command() *cobra.Command {
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		cli.PrintError("%v", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", "config file (default is ~/.audiofocus/focusctl/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context to use (default is current context)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from context)")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(scenarioCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(configCmd)
}

// configErr stores the config load error for deferred reporting.
var configErr error

func initConfig() {
	globalConfig, configErr = nil, nil
	if cfgFile != "" {
		globalConfig, configErr = cli.LoadConfigWithPath(appName, cfgFile)
		return
	}
	globalConfig = cli.LoadConfigIfExists(appName)
}

// getConfig returns the loaded configuration, creating it on first use.
func getConfig() (*cli.Config, error) {
	if globalConfig == nil {
		if configErr != nil {
			return nil, fmt.Errorf("%s config: %w", appName, configErr)
		}
		var err error
		globalConfig, err = cli.LoadConfigWithPath(appName, cfgFile)
		if err != nil {
			return nil, fmt.Errorf("%s config: %w", appName, err)
		}
	}
	return globalConfig, nil
}

// getContext returns the context to use, resolving from flag or current context.
func getContext() (*cli.Context, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	return cfg.ResolveContext(contextName)
}

// newLogger returns a stderr logger at the --log-level flag or the context level.
func newLogger(ctx *cli.Context) (*slog.Logger, error) {
	level := ctx.Level()
	if logLevel != "" {
		var err error
		if level, err = cli.ParseLevel(logLevel); err != nil {
			return nil, err
		}
	}
	return cli.NewLogger(os.Stderr, level), nil
}
