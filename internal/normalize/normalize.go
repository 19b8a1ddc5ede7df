// Package normalize canonicalizes raw text and estimates token counts.
// All functions are pure: same input, same output, no locale dependence.
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultTokenDivisor is the chars-per-token heuristic. This is a
// language-agnostic approximation, not a real tokenizer; treat counts as
// estimates only.
const DefaultTokenDivisor = 4

var (
	invisibleRe   = regexp.MustCompile("[\u200B\u200C\u200D\u2060\uFEFF]")
	doubleQuoteRe = regexp.MustCompile("[“”„«»]")
	singleQuoteRe = regexp.MustCompile("[‘’‚‹›]")
	dashRunRe     = regexp.MustCompile("[-‐‑‒–—―]{2,}")

	// RE2 has no backreferences, so repeated punctuation collapses one mark
	// at a time.
	punctRunRes = []*regexp.Regexp{
		regexp.MustCompile(`\.{2,}`),
		regexp.MustCompile(`,{2,}`),
		regexp.MustCompile(`!{2,}`),
		regexp.MustCompile(`\?{2,}`),
		regexp.MustCompile(`;{2,}`),
		regexp.MustCompile(`:{2,}`),
	}
	punctRunRepls = []string{".", ",", "!", "?", ";", ":"}

	spaceBeforePunctRe = regexp.MustCompile(`[ \t]+([.,!?;:])`)
	spaceAfterPunctRe  = regexp.MustCompile(`([.,!?;:])[ \t]{2,}`)
	brokenDecimalRe    = regexp.MustCompile(`(\d)\. (\d)`)
	spaceRunRe         = regexp.MustCompile(`[ \t]{2,}`)
	newlineRunRe       = regexp.MustCompile(`\n{3,}`)
	lineEdgeSpaceRe    = regexp.MustCompile(`(?m)^[ \t]+|[ \t]+$`)
)

// Normalizer canonicalizes text and estimates token counts.
type Normalizer struct {
	divisor int
}

// New creates a Normalizer. A non-positive divisor falls back to the default.
func New(tokenDivisor int) *Normalizer {
	if tokenDivisor <= 0 {
		tokenDivisor = DefaultTokenDivisor
	}
	return &Normalizer{divisor: tokenDivisor}
}

// Normalize canonicalizes whitespace, punctuation, dashes, quotes and
// invisible characters. Idempotent: Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}

	s := strings.ReplaceAll(text, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = invisibleRe.ReplaceAllString(s, "")

	s = doubleQuoteRe.ReplaceAllString(s, `"`)
	s = singleQuoteRe.ReplaceAllString(s, "'")
	s = dashRunRe.ReplaceAllString(s, " — ")

	for i, re := range punctRunRes {
		s = re.ReplaceAllString(s, punctRunRepls[i])
	}

	s = strings.ReplaceAll(s, "\t", " ")
	s = spaceBeforePunctRe.ReplaceAllString(s, "$1")
	s = spaceAfterPunctRe.ReplaceAllString(s, "$1 ")
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = brokenDecimalRe.ReplaceAllString(s, "$1.$2")

	s = lineEdgeSpaceRe.ReplaceAllString(s, "")
	s = newlineRunRe.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// EstimateTokens approximates the token count of already-normalized text as
// ceil(runes / divisor). Empty text estimates to zero.
func (n *Normalizer) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	runes := utf8.RuneCountInString(text)
	return (runes + n.divisor - 1) / n.divisor
}

// TokenDivisor returns the configured chars-per-token divisor.
func (n *Normalizer) TokenDivisor() int { return n.divisor }
