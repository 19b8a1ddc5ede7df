package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/logger"
	"github.com/kailas-cloud/ragdex/internal/repository/stream"
	evaluc "github.com/kailas-cloud/ragdex/internal/usecase/eval"
)

var (
	evalGolden string
	evalTopK   int
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Score retrieval quality against the golden question set",
	Long: `Runs every golden question through the retrieval path and reports
accuracy@k, MRR and nDCG@k. Writes eval_report.json plus Markdown and HTML
renderings to the data directory.`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalGolden, "golden", "", "golden question set path (default: <data-dir>/golden_questions.jsonl)")
	evalCmd.Flags().IntVarP(&evalTopK, "top-k", "k", 0, "evaluation rank (overrides config)")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	var (
		golden []domain.GoldenQuestion
		stats  stream.Stats
	)
	if evalGolden != "" {
		golden, stats, err = stream.Read(evalGolden, (*domain.GoldenQuestion).Validate, a.logger)
	} else {
		golden, stats, err = a.store.LoadGolden()
	}
	if err != nil {
		return err
	}
	if stats.Skipped > 0 {
		a.logger.Warn("Skipped malformed golden questions", zap.Int("skipped", stats.Skipped))
	}

	querySvc, err := a.queryService(cmd.Context(), nil)
	if err != nil {
		return err
	}

	k := a.cfg.Retrieval.TopK
	if evalTopK > 0 {
		k = evalTopK
	}

	sliceMap, err := a.store.LoadSliceMap()
	if err != nil {
		if !errors.Is(err, domain.ErrMissingArtifact) {
			return err
		}
		a.logger.Warn("Slice map missing; resolving hits from mirrored source ids")
	}

	svc := evaluc.New(querySvc, sliceMap, k)
	ctx := logger.ContextWithLogger(cmd.Context(), a.logger)

	report, err := svc.Evaluate(ctx, golden)
	if err != nil {
		return err
	}
	if err := evaluc.Persist(a.store, &report); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Questions: %d (%d correct, %d incorrect, %d skipped)\n",
		report.Summary.TotalQuestions, report.Summary.Correct, report.Summary.Incorrect, stats.Skipped)
	fmt.Fprintf(out, "accuracy@%d: %.4f\n", report.K, report.Metrics.AccuracyAtK)
	fmt.Fprintf(out, "MRR:        %.4f\n", report.Metrics.MRR)
	fmt.Fprintf(out, "nDCG@%d:     %.4f\n", report.K, report.Metrics.NDCGAtK)
	fmt.Fprintf(out, "Report: %s\n", a.store.Layout().EvalReportPath())
	return nil
}
