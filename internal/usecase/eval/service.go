// Package eval measures retrieval quality against a labeled golden question
// set: accuracy@k, mean reciprocal rank and nDCG@k, reported per question
// and aggregated.
package eval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/filter"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/logger"
)

// Service runs golden-set evaluations.
type Service struct {
	retriever Retriever
	resolve   resolver
	k         int
}

// New creates an evaluation service evaluating at rank k. sliceMap resolves
// retrieved slice ids back to record keys; hits absent from it fall back to
// the source key mirrored on the vector record.
func New(retriever Retriever, sliceMap domain.SliceMap, k int) *Service {
	return &Service{retriever: retriever, resolve: newResolver(sliceMap), k: k}
}

// resolver maps slice ids to collection-qualified record keys.
type resolver map[string]string

func newResolver(m domain.SliceMap) resolver {
	r := resolver{}
	for t, records := range m {
		for sourceID, sliceIDs := range records {
			key := fmt.Sprintf("%s:%s", t, sourceID)
			for _, id := range sliceIDs {
				r[id] = key
			}
		}
	}
	return r
}

func (r resolver) sourceKey(hit *result.Result) string {
	if key, ok := r[hit.ID()]; ok {
		return key
	}
	return hit.SourceKey()
}

// QuestionResult holds one question's scores and the id lists behind them.
type QuestionResult struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	ExpectedIDs []string `json:"expected_ids"`
	RetrievedID []string `json:"retrieved_ids"`
	Accuracy    float64  `json:"accuracy_at_k"`
	RR          float64  `json:"reciprocal_rank"`
	NDCG        float64  `json:"ndcg_at_k"`
}

// Metrics are the aggregate means across the golden set.
type Metrics struct {
	AccuracyAtK float64 `json:"accuracy_at_k"`
	MRR         float64 `json:"mrr"`
	NDCGAtK     float64 `json:"ndcg_at_k"`
}

// Summary counts evaluated questions by outcome.
type Summary struct {
	TotalQuestions int `json:"total_questions"`
	Correct        int `json:"correct"`
	Incorrect      int `json:"incorrect"`
}

// Report is the full evaluation output.
type Report struct {
	K           int              `json:"k"`
	GeneratedAt time.Time        `json:"generated_at"`
	Metrics     Metrics          `json:"metrics"`
	Summary     Summary          `json:"summary"`
	Results     []QuestionResult `json:"results"`
}

// Evaluate retrieves every golden question at rank k and scores the results.
// The retrieved id space is collection-qualified source keys: slices of one
// record collapse to their record's key at the first (best-ranked) position.
func (s *Service) Evaluate(ctx context.Context, golden []domain.GoldenQuestion) (Report, error) {
	log := logger.FromContext(ctx)

	report := Report{
		K:           s.k,
		GeneratedAt: time.Now().UTC(),
		Results:     make([]QuestionResult, 0, len(golden)),
	}

	var accs, rrs, ndcgs []float64

	for i := range golden {
		q := &golden[i]
		res, err := s.evaluateOne(ctx, q)
		if err != nil {
			return Report{}, fmt.Errorf("evaluate question %s: %w", q.ID, err)
		}

		accs = append(accs, res.Accuracy)
		rrs = append(rrs, res.RR)
		ndcgs = append(ndcgs, res.NDCG)
		if res.Accuracy > 0 {
			report.Summary.Correct++
		} else {
			report.Summary.Incorrect++
		}
		report.Results = append(report.Results, res)
	}

	report.Summary.TotalQuestions = len(golden)
	report.Metrics = Metrics{
		AccuracyAtK: mean(accs),
		MRR:         mean(rrs),
		NDCGAtK:     mean(ndcgs),
	}

	log.Info("Evaluation complete",
		zap.Int("questions", report.Summary.TotalQuestions),
		zap.Int("k", s.k),
		zap.Float64("accuracy_at_k", report.Metrics.AccuracyAtK),
		zap.Float64("mrr", report.Metrics.MRR),
		zap.Float64("ndcg_at_k", report.Metrics.NDCGAtK))

	return report, nil
}

func (s *Service) evaluateOne(ctx context.Context, q *domain.GoldenQuestion) (QuestionResult, error) {
	flt, err := filterFromNotes(q.Notes)
	if err != nil {
		return QuestionResult{}, err
	}

	req, err := request.New(q.Question, flt, s.k, 0)
	if err != nil {
		return QuestionResult{}, err
	}

	hits, err := s.retriever.Retrieve(ctx, &req)
	if err != nil {
		return QuestionResult{}, err
	}

	ranked := s.rankedSourceKeys(hits)
	expected := make(map[string]bool, len(q.ExpectedIDs))
	for _, id := range q.ExpectedIDs {
		expected[id] = true
	}

	return QuestionResult{
		ID:          q.ID,
		Question:    q.Question,
		ExpectedIDs: q.ExpectedIDs,
		RetrievedID: ranked,
		Accuracy:    accuracyAt(ranked, expected),
		RR:          reciprocalRank(ranked, expected),
		NDCG:        ndcgAt(ranked, expected, s.k),
	}, nil
}

// filterFromNotes parses an optional "type=<source_type>" hint restricting a
// question to one collection. Any other notes content is ignored.
func filterFromNotes(notes string) (filter.Filter, error) {
	for _, field := range strings.Fields(notes) {
		value, ok := strings.CutPrefix(field, "type=")
		if !ok {
			continue
		}
		flt, err := filter.New([]string{value}, nil, "")
		if err != nil {
			return filter.Filter{}, fmt.Errorf("notes hint: %w", err)
		}
		return flt, nil
	}
	return filter.Filter{}, nil
}

// rankedSourceKeys collapses ranked slice hits to unique source keys, keeping
// each record at its best-ranked position.
func (s *Service) rankedSourceKeys(hits []result.Result) []string {
	seen := map[string]bool{}
	keys := make([]string, 0, len(hits))
	for i := range hits {
		key := s.resolve.sourceKey(&hits[i])
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}
