package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/operator"
)

// Format classifies raw tokens into operators and terms. Operators get their
// canonical spelling; terms are cleaned with operator.FormatTerm and may split
// into several terms ("termo2:texto3" -> termo2 texto3). Wildcard-only
// pieces are dropped.
func Format(g *Node) *Node {
	out := make([]*Node, 0, len(g.Children))
	for _, c := range g.Children {
		switch c.Type {
		case GroupNode:
			out = append(out, Format(c))
		case OperatorNode:
			out = append(out, c)
		case TermNode:
			out = append(out, formatToken(c.Text)...)
		}
	}
	return Group(out...)
}

func formatToken(token string) []*Node {
	if op, ok := operator.Parse(token); ok {
		return []*Node{Op(op)}
	}
	if isQuotedTerm(token) {
		return []*Node{Term(token)}
	}
	var out []*Node
	for _, piece := range operator.Terms(token) {
		if op, ok := operator.Parse(piece); ok {
			out = append(out, Op(op))
			continue
		}
		out = append(out, Term(piece))
	}
	return out
}

// isQuotedTerm reports a term already formatted by the quote joiner.
func isQuotedTerm(token string) bool {
	return len(token) > 2 && strings.HasPrefix(token, QuoteMarker) &&
		strings.HasSuffix(token, QuoteMarker) && strings.Count(token, QuoteMarker) == 2
}
