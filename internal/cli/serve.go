package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/unisat/agentkit/internal/app"
	"github.com/unisat/agentkit/internal/config"
	"github.com/unisat/agentkit/internal/profile"
	"github.com/unisat/agentkit/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		host      string
		port      int
		agentFlag string
	)

	cmd := &cobra.Command{
		Use:   "serve [agent]",
		Short: "Start an agent HTTP server",
		Long: "Starts the /chat HTTP server for the given agent profile.\n" +
			"Available agents: " + strings.Join(profile.IDs(), ", ") + " (default bitcoin-query).",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID := agentFlag
			if len(args) > 0 {
				agentID = args[0]
			}
			if agentID == "" {
				agentID = "bitcoin-query"
			}
			p, err := profile.ByID(agentID)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.Build(ctx, cfg, p, log)
			if err != nil {
				return err
			}
			defer a.Close()

			printBanner(cmd, cfg, a)

			srv := server.New(cfg.Server, log,
				server.WithRunner(a.Runner),
				server.WithStatus(a.Status),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "override listen host")
	cmd.Flags().IntVar(&port, "port", 0, "override listen port")
	cmd.Flags().StringVar(&agentFlag, "agent", "", "agent profile (fallback for the positional argument)")

	return cmd
}

// printBanner writes the startup summary the way operators expect to see it.
func printBanner(cmd *cobra.Command, cfg config.Config, a *app.App) {
	out := cmd.OutOrStdout()
	line := strings.Repeat("=", 60)

	fmt.Fprintln(out, line)
	fmt.Fprintf(out, "%s - %s\n", a.Profile.Name, a.Profile.Description)
	fmt.Fprintln(out, line)
	fmt.Fprintf(out, "MCP Server URL: %s\n", cfg.MCP.URL)
	fmt.Fprintf(out, "MCP Connected: %v\n", a.Status.MCPConnected)
	if a.Profile.UseKnowledge {
		fmt.Fprintf(out, "Knowledge Base: %s\n", cfg.Knowledge.Path)
		fmt.Fprintf(out, "Knowledge Base Loaded: %v\n", a.Status.KnowledgeLoaded)
	}
	fmt.Fprintln(out, line)
	fmt.Fprintf(out, "\nStarting agent server on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)

	if len(a.Profile.SampleQueries) > 0 {
		fmt.Fprintln(out, "\n示例查询:")
		for _, q := range a.Profile.SampleQueries {
			fmt.Fprintf(out, "  - %s\n", q)
		}
	}
	fmt.Fprintln(out, line)
}
