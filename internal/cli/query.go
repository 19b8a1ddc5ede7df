package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ragdex/internal/domain/search/filter"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/logger"
)

var (
	querySources       []string
	queryTags          []string
	querySeries        string
	queryTopK          int
	queryMinScore      float64
	queryContextTokens int
	queryJSON          bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Retrieve the best-matching slices for a question",
	Long: `Embeds the query with the same provider as the corpus, ranks the vector
index by cosine similarity and prints the top hits. With --context-tokens the
hits are additionally assembled into a token-bounded context.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringSliceVar(&querySources, "source", nil, "restrict to source collections (kb, stories)")
	queryCmd.Flags().StringSliceVar(&queryTags, "tag", nil, "require at least one matching tag")
	queryCmd.Flags().StringVar(&querySeries, "series", "", "require an exact series id")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "result count (overrides config)")
	queryCmd.Flags().Float64Var(&queryMinScore, "min-score", -1, "similarity floor in [0,1] (overrides config)")
	queryCmd.Flags().IntVar(&queryContextTokens, "context-tokens", 0, "assemble a context within this token budget")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	flt, err := filter.New(querySources, queryTags, querySeries)
	if err != nil {
		return err
	}

	k := a.cfg.Retrieval.TopK
	if queryTopK > 0 {
		k = queryTopK
	}
	minScore := a.cfg.Retrieval.MinScore
	if queryMinScore >= 0 {
		minScore = queryMinScore
	}

	req, err := request.New(args[0], flt, k, minScore)
	if err != nil {
		return err
	}

	svc, err := a.queryService(cmd.Context(), nil)
	if err != nil {
		return err
	}
	ctx := logger.ContextWithLogger(cmd.Context(), a.logger)

	hits, err := svc.Retrieve(ctx, &req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if queryJSON {
		type hitOut struct {
			ID        string  `json:"id"`
			SourceKey string  `json:"source_key"`
			Title     string  `json:"title,omitempty"`
			Score     float64 `json:"score"`
		}
		payload := make([]hitOut, 0, len(hits))
		for i := range hits {
			payload = append(payload, hitOut{
				ID:        hits[i].ID(),
				SourceKey: hits[i].SourceKey(),
				Title:     hits[i].Meta().Title,
				Score:     hits[i].Score(),
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return err
		}
	} else if len(hits) == 0 {
		fmt.Fprintln(out, "No results.")
	} else {
		for i := range hits {
			title := hits[i].Meta().Title
			if title == "" {
				title = hits[i].SourceKey()
			}
			fmt.Fprintf(out, "%2d. %-40s %s (%.4f)\n", i+1, title, hits[i].ID(), hits[i].Score())
		}
	}

	if queryContextTokens > 0 {
		assembled, err := svc.RetrieveContext(ctx, &req, queryContextTokens)
		if err != nil {
			return err
		}
		if queryJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(assembled)
		}
		fmt.Fprintf(out, "\nContext (%d tokens):\n", assembled.TotalTokens)
		for _, p := range assembled.Parts {
			marker := ""
			if p.Truncated {
				marker = " [truncated]"
			}
			fmt.Fprintf(out, "--- %s (%d tokens)%s\n%s\n", p.SliceID, p.Tokens, marker, p.Text)
		}
	}
	return nil
}
