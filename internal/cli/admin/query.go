package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/consultbot/internal/corpus"
	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/cloo-solutions/consultbot/internal/retrieval"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type queryOptions struct {
	specialty string
	keyword   bool
	limit     int
	explain   bool
	json      bool
}

// QueryCmd returns the query command
func QueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Rank the local corpus for a question",
		Long: `Runs retrieval offline against the corpus files and sheets in the
configured corpus root, using the default plan a turn falls back to when the
planner is unavailable. No model is called.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, err := corpus.LoadStore(ctx, rt.buildLoader(corpusSources{filesOnly: true}), rt.logger)
			if err != nil && store.Empty() {
				return err
			}
			scorer, err := rt.buildScorer()
			if err != nil {
				return err
			}
			return runQuery(cmd.OutOrStdout(), store, scorer, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.specialty, "specialty", "s", "", "Rank for a specialty (code or label)")
	cmd.Flags().BoolVarP(&opts.keyword, "keyword", "k", false, "Use the plain keyword search instead of plan scoring")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show the scoring rules that fired for each result")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print results as JSON")

	return cmd
}

type queryHit struct {
	Rank        int                    `json:"rank"`
	ID          string                 `json:"id"`
	Provenance  domain.Provenance      `json:"provenance"`
	Prompt      string                 `json:"prompt"`
	Score       float64                `json:"score"`
	Explanation *retrieval.Explanation `json:"explanation,omitempty"`
}

func runQuery(out io.Writer, store *corpus.Store, scorer *retrieval.Scorer, query string, opts queryOptions) error {
	var specialty *domain.UserSpecialty
	if opts.specialty != "" {
		sp, err := domain.DefaultSpecialties.Lookup(opts.specialty)
		if err != nil {
			return fmt.Errorf("%w: %s", err, opts.specialty)
		}
		specialty = sp
	}

	selector := retrieval.NewSelector(scorer, nil)
	plan := domain.DefaultPlan(query, selector.Normalizer().Expand(query).Strings())

	var ranked []domain.ScoredItem
	if opts.keyword {
		ranked = selector.KeywordSearch(store, query, opts.limit)
	} else {
		ranked = selector.Select(store, &plan, specialty)
		if opts.limit > 0 && len(ranked) > opts.limit {
			ranked = ranked[:opts.limit]
		}
	}

	hits := make([]queryHit, 0, len(ranked))
	for i, r := range ranked {
		hit := queryHit{Rank: i + 1, ID: r.Item.ID, Provenance: r.Item.Provenance, Prompt: r.Item.Prompt, Score: r.Score}
		if opts.explain && !opts.keyword {
			exp := scorer.Explain(r.Item, &plan, specialty)
			hit.Explanation = &exp
		}
		hits = append(hits, hit)
	}

	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	dim := color.New(color.Faint)
	dim.Fprintf(out, "%d items, core keywords %v\n", store.Len(), plan.CoreKeywords)
	if len(hits) == 0 {
		fmt.Fprintln(out, "no candidates")
		return nil
	}

	num := color.New(color.FgCyan, color.Bold)
	for _, h := range hits {
		num.Fprintf(out, "%2d. ", h.Rank)
		fmt.Fprintf(out, "%-6.2f %s ", h.Score, h.Prompt)
		dim.Fprintf(out, "[%s %s]\n", h.Provenance, h.ID)
		if h.Explanation != nil {
			for _, c := range h.Explanation.Fired {
				dim.Fprintf(out, "      %-28s %s %+.2f\n", c.Rule, c.Mode, c.Value)
			}
		}
	}
	return nil
}
