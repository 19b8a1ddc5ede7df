package eval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

type mockRetriever struct {
	// hits per question text
	hits map[string][]result.Result
	// captured requests for filter assertions
	requests []*request.Request
	err      error
}

func (m *mockRetriever) Retrieve(_ context.Context, req *request.Request) ([]result.Result, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.hits[req.Query()], nil
}

func hit(t domain.SourceType, sourceID string, ordinal int, score float64) result.Result {
	return result.New(domain.SliceID(t, sourceID, ordinal), sourceID, t, score, domain.SliceMeta{})
}

func TestService_Evaluate_PerfectHit(t *testing.T) {
	retr := &mockRetriever{hits: map[string][]result.Result{
		"what are auroras?": {
			hit(domain.SourceKB, "alpha", 0, 0.92),
			hit(domain.SourceKB, "beta", 0, 0.40),
		},
	}}
	svc := New(retr, nil, 5)

	report, err := svc.Evaluate(context.Background(), []domain.GoldenQuestion{
		{ID: "q1", Question: "what are auroras?", ExpectedIDs: []string{"kb:alpha"}},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	q := report.Results[0]
	if q.Accuracy != 1 || q.RR != 1 || q.NDCG != 1 {
		t.Errorf("top-1 hit should be perfect: %+v", q)
	}
	if report.Summary.Correct != 1 || report.Summary.Incorrect != 0 {
		t.Errorf("summary = %+v", report.Summary)
	}
	if report.Metrics.AccuracyAtK != 1 || report.Metrics.MRR != 1 || report.Metrics.NDCGAtK != 1 {
		t.Errorf("metrics = %+v", report.Metrics)
	}
}

func TestService_Evaluate_SliceMapResolution(t *testing.T) {
	// The persisted slice map is the authority for resolving a slice back to
	// its record; the key mirrored on the vector record is only a fallback.
	retr := &mockRetriever{hits: map[string][]result.Result{
		"renamed record": {
			hit(domain.SourceKB, "alpha", 0, 0.9),
			hit(domain.SourceKB, "beta", 0, 0.4),
		},
	}}
	sliceMap := domain.SliceMap{
		domain.SourceKB: {
			"alpha-canonical": {"kb:alpha:0"},
		},
	}
	svc := New(retr, sliceMap, 5)

	report, err := svc.Evaluate(context.Background(), []domain.GoldenQuestion{
		{ID: "q1", Question: "renamed record", ExpectedIDs: []string{"kb:alpha-canonical"}},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	q := report.Results[0]
	if q.Accuracy != 1 || q.RR != 1 {
		t.Errorf("map-resolved hit should score: %+v", q)
	}
	if len(q.RetrievedID) != 2 || q.RetrievedID[0] != "kb:alpha-canonical" || q.RetrievedID[1] != "kb:beta" {
		t.Errorf("retrieved ids = %v", q.RetrievedID)
	}
}

func TestService_Evaluate_NoOverlap(t *testing.T) {
	retr := &mockRetriever{hits: map[string][]result.Result{
		"unanswerable": {
			hit(domain.SourceKB, "beta", 0, 0.5),
			hit(domain.SourceStories, "gamma", 0, 0.4),
		},
	}}
	svc := New(retr, nil, 5)

	report, err := svc.Evaluate(context.Background(), []domain.GoldenQuestion{
		{ID: "q1", Question: "unanswerable", ExpectedIDs: []string{"kb:alpha"}},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	q := report.Results[0]
	if q.Accuracy != 0 || q.RR != 0 || q.NDCG != 0 {
		t.Errorf("no overlap should score zero: %+v", q)
	}
	if report.Summary.Incorrect != 1 {
		t.Errorf("summary = %+v", report.Summary)
	}
}

func TestService_Evaluate_CollapsesSlicesToSourceKeys(t *testing.T) {
	// Two slices of the same record rank 1 and 2; the expected record sits
	// at rank 3 but is the second distinct source.
	retr := &mockRetriever{hits: map[string][]result.Result{
		"q": {
			hit(domain.SourceStories, "saga", 0, 0.9),
			hit(domain.SourceStories, "saga", 3, 0.8),
			hit(domain.SourceKB, "alpha", 0, 0.7),
		},
	}}
	svc := New(retr, nil, 5)

	report, err := svc.Evaluate(context.Background(), []domain.GoldenQuestion{
		{ID: "q1", Question: "q", ExpectedIDs: []string{"kb:alpha"}},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	q := report.Results[0]
	want := []string{"stories:saga", "kb:alpha"}
	if strings.Join(q.RetrievedID, ",") != strings.Join(want, ",") {
		t.Errorf("retrieved = %v, want %v", q.RetrievedID, want)
	}
	if q.RR != 0.5 {
		t.Errorf("RR = %v, want 0.5 (second distinct source)", q.RR)
	}
}

func TestService_Evaluate_NotesTypeHint(t *testing.T) {
	retr := &mockRetriever{hits: map[string][]result.Result{}}
	svc := New(retr, nil, 3)

	_, err := svc.Evaluate(context.Background(), []domain.GoldenQuestion{
		{ID: "q1", Question: "restricted", ExpectedIDs: []string{"kb:alpha"}, Notes: "tricky type=kb wording"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if len(retr.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(retr.requests))
	}
	types := retr.requests[0].Filters().SourceTypes()
	if len(types) != 1 || types[0] != domain.SourceKB {
		t.Errorf("notes hint not applied: %v", types)
	}
}

func TestService_Evaluate_BadNotesHintFails(t *testing.T) {
	svc := New(&mockRetriever{}, nil, 3)

	_, err := svc.Evaluate(context.Background(), []domain.GoldenQuestion{
		{ID: "q1", Question: "q", ExpectedIDs: []string{"kb:a"}, Notes: "type=bogus"},
	})
	if !errors.Is(err, domain.ErrUnknownSourceType) {
		t.Fatalf("err = %v, want ErrUnknownSourceType", err)
	}
}

func TestService_Evaluate_RetrieverErrorPropagates(t *testing.T) {
	svc := New(&mockRetriever{err: fmt.Errorf("%w: boom", domain.ErrEmbeddingProviderError)}, nil, 3)

	_, err := svc.Evaluate(context.Background(), []domain.GoldenQuestion{
		{ID: "q1", Question: "q", ExpectedIDs: []string{"kb:a"}},
	})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v", err)
	}
}

func TestService_Evaluate_MeansAcrossQuestions(t *testing.T) {
	retr := &mockRetriever{hits: map[string][]result.Result{
		"hit":  {hit(domain.SourceKB, "alpha", 0, 0.9)},
		"miss": {hit(domain.SourceKB, "beta", 0, 0.9)},
	}}
	svc := New(retr, nil, 5)

	report, err := svc.Evaluate(context.Background(), []domain.GoldenQuestion{
		{ID: "q1", Question: "hit", ExpectedIDs: []string{"kb:alpha"}},
		{ID: "q2", Question: "miss", ExpectedIDs: []string{"kb:alpha"}},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if report.Metrics.AccuracyAtK != 0.5 || report.Metrics.MRR != 0.5 || report.Metrics.NDCGAtK != 0.5 {
		t.Errorf("metrics = %+v, want all 0.5", report.Metrics)
	}
	if report.Summary.TotalQuestions != 2 {
		t.Errorf("summary = %+v", report.Summary)
	}
}
