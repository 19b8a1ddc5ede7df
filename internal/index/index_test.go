package index

import (
	"math"
	"testing"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/filter"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

func rec(id string, t domain.SourceType, vec []float32, meta domain.SliceMeta) domain.VectorRecord {
	return domain.VectorRecord{
		ID:         string(t) + ":" + id + ":0",
		SourceID:   id,
		SourceType: t,
		Vector:     vec,
		Meta:       meta,
	}
}

func mustRequest(t *testing.T, f filter.Filter, k int, minScore float64) *request.Request {
	t.Helper()
	r, err := request.New("q", f, k, minScore)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &r
}

func testIndex(t *testing.T) *Index {
	t.Helper()
	records := []domain.VectorRecord{
		rec("alpha", domain.SourceKB, []float32{1, 0, 0}, domain.SliceMeta{Tags: []string{"Core"}, SeriesID: "s1"}),
		rec("beta", domain.SourceKB, []float32{0, 1, 0}, domain.SliceMeta{Tags: []string{"edge"}}),
		rec("first", domain.SourceStories, []float32{0.6, 0.8, 0}, domain.SliceMeta{SeriesID: "s1"}),
		rec("second", domain.SourceStories, []float32{0, 0, 1}, domain.SliceMeta{}),
	}
	ix, err := New(3, records)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ix
}

func TestSearch_RanksByCosineDescending(t *testing.T) {
	ix := testIndex(t)

	results, err := ix.Search([]float32{1, 0, 0}, mustRequest(t, filter.Filter{}, 10, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].SourceID() != "alpha" {
		t.Errorf("top result = %s, want alpha", results[0].SourceID())
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score() > results[i-1].Score() {
			t.Errorf("scores not non-increasing at %d: %v > %v",
				i, results[i].Score(), results[i-1].Score())
		}
	}
}

func TestSearch_StableTieBreakByInsertionOrder(t *testing.T) {
	records := []domain.VectorRecord{
		rec("a", domain.SourceKB, []float32{1, 0}, domain.SliceMeta{}),
		rec("b", domain.SourceKB, []float32{1, 0}, domain.SliceMeta{}),
		rec("c", domain.SourceKB, []float32{1, 0}, domain.SliceMeta{}),
	}
	ix, err := New(2, records)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	results, err := ix.Search([]float32{1, 0}, mustRequest(t, filter.Filter{}, 3, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []string{"a", "b", "c"}
	for i, w := range want {
		if results[i].SourceID() != w {
			t.Errorf("position %d = %s, want %s (stable order)", i, results[i].SourceID(), w)
		}
	}
}

func TestSearch_TopKTruncation(t *testing.T) {
	ix := testIndex(t)

	results, err := ix.Search([]float32{1, 0, 0}, mustRequest(t, filter.Filter{}, 2, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) > 2 {
		t.Errorf("got %d results, want at most 2", len(results))
	}
}

func TestSearch_MinScoreFloor(t *testing.T) {
	ix := testIndex(t)

	// Nothing in the index is a near-duplicate of this query at 0.99.
	results, err := ix.Search([]float32{0.5, 0.5, 0.70710678}, mustRequest(t, filter.Filter{}, 10, 0.99))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result list, got %d", len(results))
	}
}

func TestSearch_SourceTypeFilter(t *testing.T) {
	ix := testIndex(t)

	f, err := filter.New([]string{"stories"}, nil, "")
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}
	results, err := ix.Search([]float32{1, 0, 0}, mustRequest(t, f, 10, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.SourceType() != domain.SourceStories {
			t.Errorf("filter leaked %s record %s", r.SourceType(), r.SourceID())
		}
	}
	if len(results) == 0 {
		t.Error("expected stories results")
	}
}

func TestSearch_TagFilterCaseInsensitive(t *testing.T) {
	ix := testIndex(t)

	f, err := filter.New(nil, []string{"CORE"}, "")
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}
	results, err := ix.Search([]float32{1, 0, 0}, mustRequest(t, f, 10, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].SourceID() != "alpha" {
		t.Fatalf("tag filter results = %v, want only alpha", ids(results))
	}
}

func TestSearch_SeriesFilter(t *testing.T) {
	ix := testIndex(t)

	f, err := filter.New(nil, nil, "s1")
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}
	results, err := ix.Search([]float32{1, 0, 0}, mustRequest(t, f, 10, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("series filter returned %d results, want 2", len(results))
	}
}

func TestSearch_DimensionMismatchIsFatal(t *testing.T) {
	ix := testIndex(t)

	_, err := ix.Search([]float32{1, 0}, mustRequest(t, filter.Filter{}, 5, 0))
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestNew_RejectsMixedDimensions(t *testing.T) {
	records := []domain.VectorRecord{
		rec("a", domain.SourceKB, []float32{1, 0, 0}, domain.SliceMeta{}),
		rec("b", domain.SourceKB, []float32{1, 0}, domain.SliceMeta{}),
	}
	if _, err := New(3, records); err == nil {
		t.Fatal("expected error for mixed dimensions")
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero norm", []float32{0, 0}, []float32{1, 0}, 0},
		{"unnormalized inputs", []float32{2, 0}, []float32{5, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func ids(results []result.Result) []string {
	out := make([]string, len(results))
	for i := range results {
		out[i] = results[i].SourceID()
	}
	return out
}
