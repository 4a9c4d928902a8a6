package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unisat/agentkit/internal/config"
	"github.com/unisat/agentkit/internal/profile"
	"github.com/unisat/agentkit/internal/version"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show agentkit configuration summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "agentkit %s (commit %s)\n\n", version.Version, version.Commit)

			cfg, err := loadConfig()
			if err != nil {
				fmt.Fprintf(out, "Config:    error loading: %v\n", err)
				return nil
			}

			fmt.Fprintf(out, "Data dir:  %s\n", cfg.DataDir)
			fmt.Fprintf(out, "MCP:       url=%s timeout=%s\n", cfg.MCP.URL, cfg.MCP.Timeout)
			fmt.Fprintf(out, "Knowledge: path=%s\n", cfg.Knowledge.Path)
			fmt.Fprintf(out, "Server:    host=%s port=%d\n", cfg.Server.Host, cfg.Server.Port)
			fmt.Fprintf(out, "Session:   backend=%s\n", cfg.Session.Backend)

			key := "(not set)"
			if cfg.LLM.APIKey != "" {
				key = "(set)"
			}
			fmt.Fprintf(out, "LLM:       model=%s baseUrl=%s apiKey=%s\n", cfg.LLM.Model, cfg.LLM.BaseURL, key)

			fmt.Fprintln(out, "\nAgents:")
			for _, id := range profile.IDs() {
				p, _ := profile.ByID(id)
				fmt.Fprintf(out, "  %-14s %s\n", p.ID, p.Description)
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s\n", issue)
				}
			}

			return nil
		},
	}
}
