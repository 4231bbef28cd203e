package client

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// SpecialtyCmd creates the specialty command.
func SpecialtyCmd() *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:   "specialty [code]",
		Short: "Show or select the conversation specialty",
		Long: `Without arguments lists the specialties and marks the current one.
With a code or label selects it for the current conversation, which resets
its memory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			r := NewRenderer(cmd.OutOrStdout(), true)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			switch {
			case unset:
				return runSetSpecialty(ctx, api, r, "")
			case len(args) == 1:
				return runSetSpecialty(ctx, api, r, args[0])
			}
			return runListSpecialties(ctx, api, r)
		},
	}

	cmd.Flags().BoolVar(&unset, "clear", false, "Clear the selected specialty")
	return cmd
}

func runListSpecialties(ctx context.Context, api *APIClient, r *Renderer) error {
	var list []Specialty
	if err := api.Get(ctx, "/v1/specialties", &list); err != nil {
		return err
	}

	selected := ""
	if id, err := CurrentSessionID(api.BaseURL()); err == nil && id != "" {
		var sess Session
		if err := api.Get(ctx, sessionPath(id), &sess); err == nil && sess.Specialty != nil {
			selected = sess.Specialty.Code
		}
	}

	r.Specialties(list, selected)
	return nil
}

func runSetSpecialty(ctx context.Context, api *APIClient, r *Renderer, code string) error {
	id, err := CurrentSessionID(api.BaseURL())
	if err != nil {
		return err
	}
	if id == "" {
		if id, err = createSession(ctx, api, ""); err != nil {
			return err
		}
		if err := RememberSession(api.BaseURL(), id); err != nil {
			return err
		}
	}

	var resp specialtyResponse
	if err := api.Put(ctx, sessionPath(id, "specialty"), specialtyRequest{Code: code}, &resp); err != nil {
		return err
	}
	if resp.Specialty == nil {
		fmt.Fprintln(r.out, "specialty cleared")
		return nil
	}
	fmt.Fprintf(r.out, "specialty set to %s (%s)\n", resp.Specialty.Label, resp.Specialty.Code)
	return nil
}
