package filter

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// Filter is a validated pre-ranking candidate filter. A zero Filter matches
// every record. Filters are applied before scoring, never after.
type Filter struct {
	sourceTypes []domain.SourceType
	tags        []string
	seriesID    string
}

// New validates and creates a Filter. Tag matching is case-insensitive, so
// tags are lowercased once here. Unknown source types are a configuration
// error, not a silent empty result.
func New(sourceTypes []string, tags []string, seriesID string) (Filter, error) {
	types := make([]domain.SourceType, 0, len(sourceTypes))
	for _, raw := range sourceTypes {
		t, err := domain.ParseSourceType(raw)
		if err != nil {
			return Filter{}, fmt.Errorf("source type filter: %w", err)
		}
		types = append(types, t)
	}

	lowered := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			lowered = append(lowered, tag)
		}
	}

	return Filter{sourceTypes: types, tags: lowered, seriesID: seriesID}, nil
}

// SourceTypes returns the collection restriction, empty meaning all.
func (f Filter) SourceTypes() []domain.SourceType { return f.sourceTypes }

// Tags returns the lowercased any-match tag set.
func (f Filter) Tags() []string { return f.tags }

// SeriesID returns the exact-match series restriction.
func (f Filter) SeriesID() string { return f.seriesID }

// IsEmpty reports whether the filter matches everything.
func (f Filter) IsEmpty() bool {
	return len(f.sourceTypes) == 0 && len(f.tags) == 0 && f.seriesID == ""
}

// Matches reports whether a vector record passes all configured restrictions.
func (f Filter) Matches(rec *domain.VectorRecord) bool {
	if len(f.sourceTypes) > 0 && !containsType(f.sourceTypes, rec.SourceType) {
		return false
	}
	if f.seriesID != "" && rec.Meta.SeriesID != f.seriesID {
		return false
	}
	if len(f.tags) > 0 && !intersectsTags(f.tags, rec.Meta.Tags) {
		return false
	}
	return true
}

func containsType(types []domain.SourceType, t domain.SourceType) bool {
	for _, st := range types {
		if st == t {
			return true
		}
	}
	return false
}

// intersectsTags reports whether any wanted tag appears among the record tags.
// Record tags are stored as authored; comparison lowercases them.
func intersectsTags(wanted, recordTags []string) bool {
	for _, rt := range recordTags {
		rt = strings.ToLower(rt)
		for _, w := range wanted {
			if rt == w {
				return true
			}
		}
	}
	return false
}
