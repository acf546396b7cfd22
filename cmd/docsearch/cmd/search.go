package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/search"
)

type searchFlags struct {
	limit      int
	details    bool
	titleFirst bool
	noBoost    bool
	partial    bool
	jsonOut    bool
}

func newSearchCmd(a *app) *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Search documents",
		Long: `Search runs title, body, fuzzy title and semantic retrieval concurrently,
fuses the ranks with weighted RRF and applies boosts.

Examples:
  docsearch search python tutorial
  docsearch search --details --limit 5 "banana bread"
  docsearch search --json --no-boost golang`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if err := search.ValidateQuery(query, nil, a.cfg.Embeddings.Dimensions); err != nil {
				return err
			}

			ctx := cmd.Context()
			rt, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			engine, err := a.engine(rt, f.partial)
			if err != nil {
				return err
			}

			opts := search.SearchOptions{
				Limit:           f.limit,
				IncludeDetails:  f.details,
				TitleMatchFirst: f.titleFirst,
			}
			if opts.Limit <= 0 {
				opts.Limit = a.cfg.Search.DefaultLimit
			}
			if f.noBoost {
				rc := engine.Config()
				rc.Boost.Enabled = false
				opts.Config = &rc
			}

			results, err := engine.Search(ctx, query, nil, opts)
			if err != nil {
				return err
			}

			out := output.NewAuto(cmd.OutOrStdout())
			if f.jsonOut {
				return out.JSON(output.ResultViews(results, f.details))
			}
			out.Results(query, results, f.details)
			return nil
		},
	}

	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "Maximum results (default search.default_limit)")
	cmd.Flags().BoolVar(&f.details, "details", false, "Show per-method scores and boosts")
	cmd.Flags().BoolVar(&f.titleFirst, "title-first", false, "List titles containing the query first, alphabetically")
	cmd.Flags().BoolVar(&f.noBoost, "no-boost", false, "Rank by fused RRF score only")
	cmd.Flags().BoolVar(&f.partial, "partial", false, "Return results even if some retrieval methods fail")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Output results as JSON")
	return cmd
}
