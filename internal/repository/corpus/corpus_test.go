package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

func TestLayout_Paths(t *testing.T) {
	l := NewLayout("/data")

	cases := []struct {
		name string
		got  string
		want string
	}{
		{"records", l.RecordsPath(domain.SourceKB), "/data/records/kb.jsonl"},
		{"slices", l.SlicesPath(domain.SourceStories), "/data/slices/stories.jsonl"},
		{"vectors", l.VectorsPath(domain.SourceKB), "/data/vectors/kb.jsonl"},
		{"slice map", l.SliceMapPath(), "/data/slice_map.json"},
		{"golden", l.GoldenPath(), "/data/golden_questions.jsonl"},
		{"report", l.EvalReportPath(), "/data/eval_report.json"},
		{"report md", l.EvalReportMarkdownPath(), "/data/eval_report.md"},
	}
	for _, tc := range cases {
		if tc.got != filepath.FromSlash(tc.want) {
			t.Errorf("%s path = %q, want %q", tc.name, tc.got, tc.want)
		}
	}
}

func TestStore_SlicesRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())

	in := []domain.Slice{
		{
			ID:               domain.SliceID(domain.SourceKB, "alpha", 0),
			SourceID:         "alpha",
			SourceType:       domain.SourceKB,
			Text:             "first slice",
			TokenCount:       3,
			ParagraphIndices: []int{0, 1},
		},
	}
	if err := store.SaveSlices(domain.SourceKB, in); err != nil {
		t.Fatalf("SaveSlices: %v", err)
	}

	out, stats, err := store.LoadSlices(domain.SourceKB)
	if err != nil {
		t.Fatalf("LoadSlices: %v", err)
	}
	if stats.Read != 1 || stats.Skipped != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(out) != 1 || out[0].ID != "kb:alpha:0" || out[0].TokenCount != 3 {
		t.Errorf("unexpected slices: %+v", out)
	}
}

func TestStore_LoadRecordsSkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zap.NewNop())

	path := store.Layout().RecordsPath(domain.SourceKB)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	content := `{"source_id":"alpha","source_type":"kb","text":"ok"}` + "\n" +
		`{"source_id":"","source_type":"kb","text":"missing id"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	records, stats, err := store.LoadRecords(domain.SourceKB)
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if stats.Read != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want Read=1 Skipped=1", stats)
	}
	if len(records) != 1 || records[0].SourceID != "alpha" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestStore_MissingVectorsFatal(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())

	_, err := store.LoadAllVectors(nil)
	if !errors.Is(err, domain.ErrMissingArtifact) {
		t.Fatalf("err = %v, want ErrMissingArtifact", err)
	}
}

func TestStore_SliceMapMergePreservesOtherTypes(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())

	if err := store.SaveSliceMap(domain.SliceMap{
		domain.SourceKB: {"alpha": {"kb:alpha:0"}},
	}); err != nil {
		t.Fatalf("SaveSliceMap kb: %v", err)
	}
	if err := store.SaveSliceMap(domain.SliceMap{
		domain.SourceStories: {"first-contact": {"stories:first-contact:0", "stories:first-contact:1"}},
	}); err != nil {
		t.Fatalf("SaveSliceMap stories: %v", err)
	}

	m, err := store.LoadSliceMap()
	if err != nil {
		t.Fatalf("LoadSliceMap: %v", err)
	}
	if len(m[domain.SourceKB]["alpha"]) != 1 {
		t.Errorf("kb entry lost after stories rerun: %+v", m)
	}
	if len(m[domain.SourceStories]["first-contact"]) != 2 {
		t.Errorf("stories entry missing: %+v", m)
	}
}

func TestStore_SliceMapRerunReplacesType(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())

	if err := store.SaveSliceMap(domain.SliceMap{
		domain.SourceKB: {"alpha": {"kb:alpha:0"}, "beta": {"kb:beta:0"}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSliceMap(domain.SliceMap{
		domain.SourceKB: {"alpha": {"kb:alpha:0", "kb:alpha:1"}},
	}); err != nil {
		t.Fatal(err)
	}

	m, err := store.LoadSliceMap()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m[domain.SourceKB]["beta"]; ok {
		t.Errorf("rerun should supersede the collection's entries wholesale: %+v", m)
	}
	if len(m[domain.SourceKB]["alpha"]) != 2 {
		t.Errorf("updated entry missing: %+v", m)
	}
}
