package client

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// ResetCmd creates the reset command.
func ResetCmd() *cobra.Command {
	var end bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the conversation memory",
		Long:  "Clears the remembered turns and summary of the current conversation. --end drops the conversation entirely.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runReset(ctx, api, NewRenderer(cmd.OutOrStdout(), true), end)
		},
	}

	cmd.Flags().BoolVar(&end, "end", false, "End the conversation instead of clearing it")
	return cmd
}

func runReset(ctx context.Context, api *APIClient, r *Renderer, end bool) error {
	id, err := CurrentSessionID(api.BaseURL())
	if err != nil {
		return err
	}
	if id == "" {
		fmt.Fprintln(r.out, "no active conversation")
		return nil
	}

	if end {
		if err := api.Delete(ctx, sessionPath(id)); err != nil && !IsNotFound(err) {
			return err
		}
		if err := ForgetSession(api.BaseURL()); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "conversation ended")
		return nil
	}

	if err := api.Delete(ctx, sessionPath(id, "memory")); err != nil {
		if IsNotFound(err) {
			_ = ForgetSession(api.BaseURL())
			fmt.Fprintln(r.out, "conversation expired")
			return nil
		}
		return err
	}
	fmt.Fprintln(r.out, "conversation memory cleared")
	return nil
}
