package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// FAQCmd creates the faq command.
func FAQCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faq [field] [topic]",
		Short: "Browse the FAQ by field and topic",
		Long: `Lists FAQ fields. With a field, lists its topics; with a field and a
topic, prints the questions and answers filed under them.`,
		Example: `  consultbot faq
  consultbot faq 파트너사
  consultbot faq 파트너사 간판`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			var field, topic string
			if len(args) > 0 {
				field = args[0]
			}
			if len(args) > 1 {
				topic = args[1]
			}
			return runFAQ(cmd.Context(), api, NewRenderer(cmd.OutOrStdout(), true), field, topic, outputJSON)
		},
	}
	return cmd
}

func faqPath(field, topic string) string {
	q := url.Values{}
	if field != "" {
		q.Set("field", field)
	}
	if topic != "" {
		q.Set("topic", topic)
	}
	if len(q) == 0 {
		return "/v1/faq"
	}
	return "/v1/faq?" + q.Encode()
}

func runFAQ(ctx context.Context, api *APIClient, r *Renderer, field, topic string, outputJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var page FAQPage
	if err := api.Get(ctx, faqPath(field, topic), &page); err != nil {
		return err
	}
	if outputJSON {
		return r.JSON(page)
	}

	dim := color.New(color.Faint)
	switch {
	case field == "":
		if len(page.Fields) == 0 {
			fmt.Fprintln(r.out, "No FAQ entries.")
		}
		for _, f := range page.Fields {
			fmt.Fprintln(r.out, f)
		}
	case topic == "":
		if len(page.Topics) == 0 {
			fmt.Fprintf(r.out, "No topics under %s.\n", field)
		}
		for _, t := range page.Topics {
			fmt.Fprintf(r.out, "%s > %s\n", field, t)
		}
	default:
		if len(page.Items) == 0 {
			fmt.Fprintf(r.out, "No questions under %s > %s.\n", field, topic)
		}
		q := color.New(color.Bold)
		for _, item := range page.Items {
			q.Fprintf(r.out, "Q. %s\n", item.Question)
			fmt.Fprintln(r.out, item.Answer)
			dim.Fprintf(r.out, "(%s)\n\n", item.ID)
		}
	}
	return nil
}
