package compiler

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/dsl"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/operator"
)

// Smart search runs a whole text as one proximity or more-like-this clause:
//
//	ADJ5: dano moral material NÃO (estetico)
//	CONTÉM: <pasted paragraph>
var (
	reSmartPrefix   = regexp.MustCompile(`^(adj\d*|prox\d*|contem)\s*:`)
	reNotSpan       = regexp.MustCompile(`(?i)\s+n[aã]o\s*\([^)]+\)`)
	reNotSpanMarks  = regexp.MustCompile(`(?i)(\s+n[aã]o\s*\()|(\()|(\))`)
	reNonWord       = regexp.MustCompile(`[^A-Za-z\d]`)
	reTextSignal    = regexp.MustCompile(`d?[aiou] |de|[ a-z],|[{}\[\]]|[a-z]:`)
	reOperatorToken = regexp.MustCompile(`(^|\W)(adjc?\d*|proxc?\d*|com)(\W|$)`)
)

const (
	// AutoContainsMinLength is the length a plain criteria must exceed before
	// it is considered for automatic CONTÉM.
	AutoContainsMinLength = 50

	// ContainsLabel is how CONTÉM is rendered in canonical strings.
	ContainsLabel = "CONTÉM"

	AdvisoryAutoContains = `Critério "CONTÉM:" inserido automaticamente ao identificar o conteúdo como texto. Use ":" antes da pesquisa para desativá-lo.`

	mltMaxQueryTerms = 30
)

// smartPrefix returns the folded prefix ("adj2", "prox", "contem") and the
// text after the colon, if criteria starts with one.
func smartPrefix(criteria string) (string, string, bool) {
	folded := strings.ToLower(operator.StripAccents(criteria))
	m := reSmartPrefix.FindStringSubmatchIndex(folded)
	if m == nil {
		return "", "", false
	}
	prefix := folded[m[2]:m[3]]
	// folding only removes bytes, so cut the original after its first colon
	_, rest, _ := strings.Cut(criteria, ":")
	return prefix, rest, true
}

// looksLikeText reports whether an unprefixed criteria is better served by
// CONTÉM: long, without proximity operators or field groups, and with more
// than one sign of running text (articles, commas glued to words, brackets).
func looksLikeText(criteria string) bool {
	if strings.HasPrefix(criteria, ":") || utf8.RuneCountInString(criteria) <= AutoContainsMinLength {
		return false
	}
	folded := strings.ToLower(operator.StripAccents(criteria))
	if reOperatorToken.MatchString(folded) || reFieldMarker.MatchString(folded) {
		return false
	}
	return len(reTextSignal.FindAllStringIndex(folded, -1)) > 1
}

// smartText splits the text after the prefix into its positive words and
// the contents of each NÃO (...) span.
func smartText(text string) ([]string, []string) {
	var unlike []string
	for _, span := range reNotSpan.FindAllString(text, -1) {
		span = reNotSpanMarks.ReplaceAllString(span, " ")
		if words := cleanWords(span); len(words) > 0 {
			unlike = append(unlike, strings.Join(words, " "))
		}
	}
	return cleanWords(reNotSpan.ReplaceAllString(text, " ")), unlike
}

func cleanWords(text string) []string {
	text = operator.StripAccents(strings.ToLower(text))
	return strings.Fields(reNonWord.ReplaceAllString(text, " "))
}

// minimumShouldMatch relaxes the more-like-this threshold as the text grows.
func minimumShouldMatch(words []string) string {
	distinct := make(map[string]struct{}, len(words))
	for _, w := range words {
		distinct[w] = struct{}{}
	}
	switch {
	case len(distinct) < 5:
		return "100%"
	case len(words) < 30:
		return "75%"
	default:
		return "50%"
	}
}

func smartCanonical(label string, words, unlike []string) string {
	parts := append([]string{label + ":"}, words...)
	for _, u := range unlike {
		parts = append(parts, "NÃO ("+u+")")
	}
	return strings.Join(parts, " ")
}

func (c *compiler) smartSearch(prefix, text string, res *Result) {
	words, unlike := smartText(text)

	if prefix == "contem" {
		res.Mode = ModeContains
		res.Canonical = smartCanonical(ContainsLabel, words, unlike)
		if len(words) == 0 {
			res.Query = dsl.MatchNone{}
			return
		}
		if unlike == nil {
			unlike = []string{}
		}
		res.Query = dsl.MoreLikeThis{
			Fields:             []string{c.field},
			Like:               strings.Join(words, " "),
			Unlike:             unlike,
			MinTermFreq:        1,
			MinDocFreq:         1,
			MaxQueryTerms:      mltMaxQueryTerms,
			MinimumShouldMatch: minimumShouldMatch(words),
		}
		return
	}

	op, _ := operator.Parse(prefix)
	res.Mode = ModeProximity
	res.Diagnostics.UsesProximity = true
	res.Canonical = smartCanonical(op.String(), words, unlike)
	if len(words) == 0 {
		res.Query = dsl.MatchNone{}
		return
	}

	positive := c.spanNear(words, op)
	if len(unlike) == 0 {
		res.Query = positive
		return
	}
	res.Query = dsl.Bool{
		Must:    []dsl.Query{positive},
		MustNot: []dsl.Query{c.spanNear(strings.Fields(strings.Join(unlike, " ")), op)},
	}
}

func (c *compiler) spanNear(words []string, op operator.Operator) dsl.SpanNear {
	clauses := make([]dsl.Query, len(words))
	for i, w := range words {
		clauses[i] = compileLeaf(w, op, c.field)
	}
	return dsl.SpanNear{Clauses: clauses, Slop: op.Slop(), InOrder: op.Kind == operator.Adj}
}
