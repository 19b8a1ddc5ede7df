package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/filter"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/embedding"
	"github.com/kailas-cloud/ragdex/internal/index"
	"github.com/kailas-cloud/ragdex/internal/normalize"
)

const testDims = 32

type fixture struct {
	svc    *Service
	slices []domain.Slice
}

// buildFixture embeds each slice text with the hash embedder and loads the
// vectors into a real index, mirroring the pipeline's own stages.
func buildFixture(t *testing.T, slices []domain.Slice) *fixture {
	t.Helper()

	emb := embedding.NewHashEmbedder(testDims)
	records := make([]domain.VectorRecord, len(slices))
	for i := range slices {
		res, err := emb.Embed(context.Background(), slices[i].Text)
		if err != nil {
			t.Fatalf("embed fixture: %v", err)
		}
		records[i] = domain.VectorRecord{
			ID:         slices[i].ID,
			SourceID:   slices[i].SourceID,
			SourceType: slices[i].SourceType,
			Vector:     res.Embedding,
			Meta:       slices[i].Meta,
		}
	}

	ix, err := index.New(testDims, records)
	if err != nil {
		t.Fatalf("index.New: %v", err)
	}

	norm := normalize.New(4)
	svc := New(norm, emb, ix, NewSliceSet(slices), 100)
	return &fixture{svc: svc, slices: slices}
}

func mkSlice(t domain.SourceType, id string, ordinal, tokens int, text string) domain.Slice {
	return domain.Slice{
		ID:         domain.SliceID(t, id, ordinal),
		SourceID:   id,
		SourceType: t,
		Text:       text,
		TokenCount: tokens,
		Meta:       domain.SliceMeta{Title: "about " + id},
	}
}

func mustRequest(t *testing.T, query string, f filter.Filter, k int, minScore float64) request.Request {
	t.Helper()
	req, err := request.New(query, f, k, minScore)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return req
}

func TestService_Retrieve_ExactTextRanksFirst(t *testing.T) {
	f := buildFixture(t, []domain.Slice{
		mkSlice(domain.SourceKB, "alpha", 0, 10, "auroras form when solar wind hits the magnetosphere"),
		mkSlice(domain.SourceKB, "beta", 0, 10, "beacons guide ships through the strait at night"),
		mkSlice(domain.SourceStories, "gamma", 0, 10, "the crew landed on the third moon before dawn"),
	})

	req := mustRequest(t, "auroras form when solar wind hits the magnetosphere", filter.Filter{}, 3, 0)
	hits, err := f.svc.Retrieve(context.Background(), &req)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].ID() != "kb:alpha:0" {
		t.Errorf("top hit = %s, want kb:alpha:0", hits[0].ID())
	}
	if hits[0].Score() < 0.999 {
		t.Errorf("identical text should score ~1.0, got %f", hits[0].Score())
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score() > hits[i-1].Score() {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestService_Retrieve_NormalizesQuery(t *testing.T) {
	f := buildFixture(t, []domain.Slice{
		mkSlice(domain.SourceKB, "alpha", 0, 10, "auroras form over the poles"),
	})

	plain := mustRequest(t, "auroras form over the poles", filter.Filter{}, 1, 0)
	messy := mustRequest(t, "  auroras \t  form over the poles  ", filter.Filter{}, 1, 0)

	a, err := f.svc.Retrieve(context.Background(), &plain)
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.svc.Retrieve(context.Background(), &messy)
	if err != nil {
		t.Fatal(err)
	}
	if a[0].Score() != b[0].Score() {
		t.Errorf("normalization should make scores equal: %f vs %f", a[0].Score(), b[0].Score())
	}
}

func TestService_Retrieve_SourceTypeFilter(t *testing.T) {
	f := buildFixture(t, []domain.Slice{
		mkSlice(domain.SourceKB, "alpha", 0, 10, "shared topic text"),
		mkSlice(domain.SourceStories, "beta", 0, 10, "shared topic text variant"),
	})

	flt, err := filter.New([]string{"stories"}, nil, "")
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}
	req := mustRequest(t, "shared topic text", flt, 5, 0)

	hits, err := f.svc.Retrieve(context.Background(), &req)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].SourceType() != domain.SourceStories {
		t.Errorf("filter leaked: %d hits", len(hits))
	}
}

func TestService_Retrieve_EmptyAfterNormalization(t *testing.T) {
	f := buildFixture(t, []domain.Slice{
		mkSlice(domain.SourceKB, "alpha", 0, 10, "text"),
	})

	req := mustRequest(t, "\u200B\uFEFF", filter.Filter{}, 1, 0)
	_, err := f.svc.Retrieve(context.Background(), &req)
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("err = %v, want ErrInvalidQuery", err)
	}
}

func TestService_RetrieveContext_PacksWholeSlices(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 160)) // 799 chars, 200 tokens
	f := buildFixture(t, []domain.Slice{
		mkSlice(domain.SourceKB, "alpha", 0, 200, text),
		mkSlice(domain.SourceKB, "beta", 0, 200, text+" beta"),
		mkSlice(domain.SourceKB, "gamma", 0, 200, text+" gamma extra"),
	})

	req := mustRequest(t, text, filter.Filter{}, 3, 0)
	out, err := f.svc.RetrieveContext(context.Background(), &req, 450)
	if err != nil {
		t.Fatalf("RetrieveContext: %v", err)
	}

	// 450 budget: two whole slices (400), remaining 50 < minPartTokens(100).
	if len(out.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(out.Parts))
	}
	if out.TotalTokens != 400 {
		t.Errorf("TotalTokens = %d, want 400", out.TotalTokens)
	}
	for _, p := range out.Parts {
		if p.Truncated {
			t.Errorf("part %s unexpectedly truncated", p.SliceID)
		}
	}
}

func TestService_RetrieveContext_TruncatesLastPart(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 160))
	f := buildFixture(t, []domain.Slice{
		mkSlice(domain.SourceKB, "alpha", 0, 200, text),
		mkSlice(domain.SourceKB, "beta", 0, 200, text+" beta"),
	})

	req := mustRequest(t, text, filter.Filter{}, 2, 0)
	out, err := f.svc.RetrieveContext(context.Background(), &req, 320)
	if err != nil {
		t.Fatalf("RetrieveContext: %v", err)
	}

	// First slice fits (200); remaining 120 >= 100 so the second is truncated.
	if len(out.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(out.Parts))
	}
	last := out.Parts[1]
	if !last.Truncated {
		t.Error("second part should be truncated")
	}
	if last.Tokens > 120 {
		t.Errorf("truncated part tokens = %d, exceeds remaining budget 120", last.Tokens)
	}
	if out.TotalTokens > 320 {
		t.Errorf("TotalTokens = %d, exceeds budget", out.TotalTokens)
	}
	if len([]rune(last.Text)) > 120*4 {
		t.Errorf("truncated text longer than budgeted runes: %d", len([]rune(last.Text)))
	}
}

func TestService_RetrieveContext_InvalidBudget(t *testing.T) {
	f := buildFixture(t, []domain.Slice{
		mkSlice(domain.SourceKB, "alpha", 0, 10, "text"),
	})

	req := mustRequest(t, "text", filter.Filter{}, 1, 0)
	_, err := f.svc.RetrieveContext(context.Background(), &req, 0)
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("err = %v, want ErrInvalidQuery", err)
	}
}
