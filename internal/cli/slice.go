package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ragdex/internal/logger"
	"github.com/kailas-cloud/ragdex/internal/slicer"
	slicinguc "github.com/kailas-cloud/ragdex/internal/usecase/slicing"
)

var (
	sliceSource    string
	sliceMaxTokens int
)

var sliceCmd = &cobra.Command{
	Use:   "slice",
	Short: "Cut source records into token-bounded slices",
	Long: `Reads exported records from the data directory, cuts each record's text
into slices within the token budget and writes slices plus the
source-to-slice map back to the data directory.`,
	Args: cobra.NoArgs,
	RunE: runSlice,
}

func init() {
	sliceCmd.Flags().StringVar(&sliceSource, "source", "all", "source collection: kb, stories or all")
	sliceCmd.Flags().IntVar(&sliceMaxTokens, "max-tokens", 0, "per-slice token budget (overrides config)")
	rootCmd.AddCommand(sliceCmd)
}

func runSlice(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	types, err := parseSources(sliceSource)
	if err != nil {
		return err
	}

	maxTokens := a.cfg.Slicing.MaxTokens
	if sliceMaxTokens > 0 {
		maxTokens = sliceMaxTokens
	}
	sl, err := slicer.New(a.norm, maxTokens)
	if err != nil {
		return err
	}

	svc := slicinguc.New(a.store, sl, a.cfg.Slicing.Workers)
	ctx := logger.ContextWithLogger(cmd.Context(), a.logger)

	summary, err := svc.Run(ctx, types)
	if err != nil {
		return err
	}

	for _, ts := range summary.Types {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records read, %d skipped, %d slices written\n",
			ts.SourceType, ts.RecordsRead, ts.RecordsSkipped, ts.SlicesWritten)
	}
	return nil
}
