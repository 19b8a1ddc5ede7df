package query

import (
	"fmt"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// assemble packs ranked hits into a context greedily, best score first.
// A hit that no longer fits whole is truncated to the remaining budget when
// the fragment would still carry at least minPartTokens tokens; assembly
// stops at the first hit that cannot contribute.
func (s *Service) assemble(hits []result.Result, maxTokens int) (Context, error) {
	out := Context{Parts: []ContextPart{}}
	remaining := maxTokens

	for i := range hits {
		hit := &hits[i]
		slice, ok := s.slices.Get(hit.ID())
		if !ok {
			return Context{}, fmt.Errorf("%w: slice %s referenced by index", domain.ErrNotFound, hit.ID())
		}

		if slice.TokenCount <= remaining {
			out.Parts = append(out.Parts, s.part(hit, slice.Text, slice.TokenCount, false))
			out.TotalTokens += slice.TokenCount
			remaining -= slice.TokenCount
			if remaining == 0 {
				break
			}
			continue
		}

		if remaining >= s.minPartTokens {
			text := truncateRunes(slice.Text, remaining*s.norm.TokenDivisor())
			tokens := s.norm.EstimateTokens(text)
			if tokens > remaining {
				tokens = remaining
			}
			out.Parts = append(out.Parts, s.part(hit, text, tokens, true))
			out.TotalTokens += tokens
		}
		break
	}

	return out, nil
}

func (s *Service) part(hit *result.Result, text string, tokens int, truncated bool) ContextPart {
	return ContextPart{
		SliceID:    hit.ID(),
		SourceKey:  hit.SourceKey(),
		SourceType: hit.SourceType(),
		Title:      hit.Meta().Title,
		Score:      hit.Score(),
		Text:       text,
		Tokens:     tokens,
		Truncated:  truncated,
	}
}

// truncateRunes cuts text to at most n runes, never splitting a rune.
func truncateRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
