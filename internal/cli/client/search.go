package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		specialty string
		mode      string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge corpus",
		Long:  "Ranks knowledge items for a query without generating an answer.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			req := searchRequest{Query: strings.Join(args, " "), Specialty: specialty, Mode: mode, Limit: limit}
			return runSearch(cmd.Context(), api, NewRenderer(cmd.OutOrStdout(), true), req, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&specialty, "specialty", "s", "", "Rank for a specialty (code or label)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "plan", "Retrieval mode: plan or keyword")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results")

	return cmd
}

func runSearch(ctx context.Context, api *APIClient, r *Renderer, req searchRequest, outputJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var result SearchResult
	if err := api.Post(ctx, "/v1/search", req, &result); err != nil {
		return err
	}

	if outputJSON {
		return r.JSON(result)
	}

	if result.Plan != nil {
		label := color.New(color.Faint)
		label.Fprintf(r.out, "intent=%s topic=%s strategy=%s", result.Plan.Intent, result.Plan.Topic, result.Plan.SearchStrategy)
		if result.PlanFallback {
			label.Fprint(r.out, " (default plan)")
		}
		fmt.Fprintln(r.out)
	}
	if len(result.Items) == 0 {
		fmt.Fprintln(r.out, "No matching knowledge.")
		return nil
	}
	r.References(result.Items)
	return nil
}
