package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/operator"
)

// JoinQuotes replaces every quoted run of words with an explicit phrase
// group: "dano moral" becomes ("dano" ADJ1 "moral"). A phrase ends at the
// closing quote, at a nested group or at the end of its list, so an
// unterminated quote still joins the remaining words.
func JoinQuotes(g *Node) *Node {
	out := make([]*Node, 0, len(g.Children))
	var phrase []string
	inQuote := false

	closePhrase := func() {
		if p := quotedPhrase(phrase); p != nil {
			out = append(out, p)
		}
		phrase = nil
		inQuote = false
	}

	for _, c := range g.Children {
		isMarker := c.IsTerm() && c.Text == QuoteMarker
		switch {
		case c.IsGroup():
			if inQuote {
				closePhrase()
			}
			out = append(out, JoinQuotes(c))
		case isMarker && inQuote:
			closePhrase()
		case isMarker:
			inQuote = true
		case inQuote:
			phrase = append(phrase, c.Text)
		default:
			out = append(out, c)
		}
	}
	if inQuote {
		closePhrase()
	}
	return Group(out...)
}

// quotedPhrase formats the words of a phrase and chains the searchable
// pieces with ADJ1. A single piece is returned as a bare quoted term.
func quotedPhrase(words []string) *Node {
	var pieces []*Node
	for _, w := range words {
		for _, t := range operator.Terms(strings.ReplaceAll(w, QuoteMarker, " ")) {
			if len(pieces) > 0 {
				pieces = append(pieces, Op(operator.ADJ1))
			}
			pieces = append(pieces, Term(QuoteMarker+t+QuoteMarker))
		}
	}
	switch len(pieces) {
	case 0:
		return nil
	case 1:
		return pieces[0]
	}
	return Group(pieces...)
}
