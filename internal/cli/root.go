// Package cli wires the ragdex commands: slice, embed, query, eval, serve
// and version.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/config"
	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/db/kv"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/embedding"
	"github.com/kailas-cloud/ragdex/internal/index"
	"github.com/kailas-cloud/ragdex/internal/logger"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/normalize"
	"github.com/kailas-cloud/ragdex/internal/repository/corpus"
	queryuc "github.com/kailas-cloud/ragdex/internal/usecase/query"
)

var (
	flagDataDir string

	rootCmd = &cobra.Command{
		Use:   "ragdex",
		Short: "Retrieval pipeline over exported text corpora",
		Long: `ragdex slices exported source records into token-bounded fragments,
embeds them into a vector index and answers retrieval queries over it.
Artifacts live as JSONL files under the data directory; each stage reads
its predecessor's output and replaces its own atomically.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "artifact data directory (overrides config)")
}

// Execute runs the CLI. Returns a process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// app is the composition root shared by all commands.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  *corpus.Store
	norm   *normalize.Normalizer
	cache  db.Store
}

// newApp loads config, builds the logger and the artifact store. Called at
// the start of every command's RunE rather than in PersistentPreRunE so that
// help and version never need a valid config.
func newApp() (*app, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagDataDir != "" {
		cfg.Data.Dir = flagDataDir
	}

	log, err := logger.New(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.RegisterPipelineMetrics()

	return &app{
		cfg:    cfg,
		logger: log,
		store:  corpus.NewStore(cfg.Data.Dir, log),
		norm:   normalize.New(cfg.Normalize.TokenDivisor),
	}, nil
}

func (a *app) close() {
	if a.cache != nil {
		a.cache.Close()
	}
	_ = a.logger.Sync()
}

// embedder assembles the decorator chain configured for this run:
// provider -> cache -> instrumented.
func (a *app) embedder(ctx context.Context) (domain.Embedder, error) {
	var base domain.Embedder
	switch a.cfg.Embedding.Provider {
	case "hash":
		base = embedding.NewHashEmbedder(a.cfg.Embedding.Dimensions)
	case "openai":
		base = embedding.NewOpenAIEmbedder(&embedding.OpenAIConfig{
			APIKey:     a.cfg.Embedding.OpenAI.APIKey,
			BaseURL:    a.cfg.Embedding.OpenAI.BaseURL,
			Model:      a.cfg.Embedding.OpenAI.Model,
			Dimensions: a.cfg.Embedding.Dimensions,
			Logger:     a.logger,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", a.cfg.Embedding.Provider)
	}

	emb := base
	if a.cfg.Embedding.Cache.Enabled {
		store, err := kv.NewStore(kv.Config{
			Addrs:    a.cfg.Embedding.Cache.Addrs,
			Password: a.cfg.Embedding.Cache.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		readiness := time.Duration(a.cfg.Embedding.Cache.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			store.Close()
			return nil, fmt.Errorf("cache not ready: %w", err)
		}
		a.cache = store
		ttl := time.Duration(a.cfg.Embedding.Cache.TTLHours) * time.Hour
		emb = embedding.NewCached(emb, store, ttl, metrics.EmbeddingCacheTotal, a.logger)
	}

	return embedding.NewInstrumented(emb, a.cfg.Embedding.Provider, a.logger), nil
}

// queryService loads the vector index and slice texts and wires the online
// query path.
func (a *app) queryService(ctx context.Context, types []domain.SourceType) (*queryuc.Service, error) {
	emb, err := a.embedder(ctx)
	if err != nil {
		return nil, err
	}

	vectors, err := a.store.LoadAllVectors(types)
	if err != nil {
		return nil, err
	}
	ix, err := index.New(a.cfg.Embedding.Dimensions, vectors)
	if err != nil {
		return nil, err
	}

	var slices []domain.Slice
	loadTypes := types
	if len(loadTypes) == 0 {
		loadTypes = domain.AllSourceTypes()
	}
	for _, t := range loadTypes {
		part, _, err := a.store.LoadSlices(t)
		if err != nil {
			return nil, err
		}
		slices = append(slices, part...)
	}

	a.logger.Info("Index loaded",
		zap.Int("vectors", ix.Len()),
		zap.Int("slices", len(slices)),
		zap.Int("dimensions", ix.Dimensions()))

	return queryuc.New(a.norm, emb, ix, queryuc.NewSliceSet(slices), a.cfg.Context.MinPartTokens), nil
}

// parseSources maps the --source flag to source types; "all" or empty means
// every known collection.
func parseSources(selector string) ([]domain.SourceType, error) {
	if selector == "" || selector == "all" {
		return nil, nil
	}
	t, err := domain.ParseSourceType(selector)
	if err != nil {
		return nil, err
	}
	return []domain.SourceType{t}, nil
}
