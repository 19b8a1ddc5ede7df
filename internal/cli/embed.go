package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ragdex/internal/logger"
	embeduc "github.com/kailas-cloud/ragdex/internal/usecase/embed"
)

var embedSource string

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Vectorize slices into the index artifacts",
	Long: `Reads slices from the data directory, embeds every slice text with the
configured provider and writes one vector record per slice. All vectors of a
run share the configured dimensionality.`,
	Args: cobra.NoArgs,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().StringVar(&embedSource, "source", "all", "source collection: kb, stories or all")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	types, err := parseSources(embedSource)
	if err != nil {
		return err
	}

	emb, err := a.embedder(cmd.Context())
	if err != nil {
		return err
	}

	svc := embeduc.New(a.store, emb, a.cfg.Embedding.Dimensions, a.cfg.Embedding.Workers)
	ctx := logger.ContextWithLogger(cmd.Context(), a.logger)

	summary, err := svc.Run(ctx, types)
	if err != nil {
		return err
	}

	for _, ts := range summary.Types {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d slices read, %d skipped, %d vectors written, %d tokens\n",
			ts.SourceType, ts.SlicesRead, ts.SlicesSkipped, ts.VectorsWritten, ts.TokensUsed)
	}
	return nil
}
