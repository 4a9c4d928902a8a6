package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unisat/agentkit/internal/client"
	"github.com/unisat/agentkit/internal/profile"
)

func newClientCmd() *cobra.Command {
	var (
		agentID string
		query   string
	)

	cmd := &cobra.Command{
		Use:   "client [base-url]",
		Short: "Send test queries to a running agent server",
		Long: "Runs the agent profile's sample queries against a server, or a single\n" +
			"query with --query. Defaults to " + client.DefaultBaseURL + ".",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL := ""
			if len(args) > 0 {
				baseURL = args[0]
			}

			p, err := profile.ByID(agentID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if query != "" {
				c := client.New(baseURL, p.ClientTimeout)
				result, err := c.Send(context.Background(), query)
				if err != nil {
					return err
				}
				if answer, ok := result["answer"].(string); ok {
					fmt.Fprintln(out, answer)
				} else {
					raw, _ := json.Marshal(result)
					fmt.Fprintln(out, string(raw))
				}
				return nil
			}

			client.RunSamples(context.Background(), out, baseURL, p)
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "bitcoin-query",
		"agent profile to test ("+strings.Join(profile.IDs(), ", ")+")")
	cmd.Flags().StringVar(&query, "query", "", "send a single query instead of the samples")

	return cmd
}
