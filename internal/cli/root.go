// Package cli implements the agentkit command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/unisat/agentkit/internal/config"
	"github.com/unisat/agentkit/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// resolved in PersistentPreRunE
	dataDir string
	log     *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentkit",
		Short: "UniSat agent service — Bitcoin query and BRC20 analysis agents",
		Long: "Agentkit runs conversational agents for the Bitcoin ecosystem. Agents delegate\n" +
			"blockchain data access to a UniSat MCP tool server and reasoning to an external\n" +
			"LLM API.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			dataDir, err = config.ResolveDataDir()
			if err != nil {
				return err
			}
			level := logLevel
			if level == "" {
				level = config.Getenv("AGENTKIT_LOG_LEVEL", "info")
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.agentkit/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newClientCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// loadConfig resolves the effective configuration for a command.
func loadConfig() (config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.ConfigPath(dataDir)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
