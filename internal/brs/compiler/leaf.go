package compiler

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/dsl"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/operator"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/parser"
)

// compileLeaf turns one term into a term, wildcard or regexp clause, or
// their span forms when the enclosing group is ADJ/PROX.
//
// The kind is decided on the term as written, quotes included, so a quoted
// number stays an exact term on the raw field.
func compileLeaf(term string, op operator.Operator, field string) dsl.Query {
	token := strings.ToLower(term)
	wildcard := strings.ContainsAny(token, "*$")
	regexp := strings.Contains(token, "?") || operator.IsNumeric(token)
	value := strings.NewReplacer(`"`, "", "'", "").Replace(operator.StripAccents(token))

	var q dsl.Query
	switch {
	case wildcard && !regexp:
		q = dsl.Wildcard{Field: field, Value: operator.WildcardPattern(value)}
	case regexp:
		q = dsl.Regexp{Field: field, Value: operator.WildcardRegex(value)}
	case op.IsSlop():
		return dsl.SpanTerm{Field: field, Value: value}
	default:
		return dsl.Term{Field: field, Value: value}
	}
	if op.IsSlop() {
		return dsl.SpanMulti{Match: q}
	}
	return q
}

// termField is the field searched by a single term: quoted terms go to the
// raw subfield.
func (c *compiler) termField(term string) string {
	if strings.Contains(term, `"`) {
		return c.rawField()
	}
	return c.field
}

// groupField is the field shared by every clause of a span_near, which
// cannot mix fields: the raw subfield as soon as one term is quoted.
func (c *compiler) groupField(g *parser.Node) string {
	for _, child := range g.Children {
		if child.IsQuoted() {
			return c.rawField()
		}
	}
	return c.field
}

func (c *compiler) rawField() string {
	return c.field + c.rawSuffix
}

// CompileTerm compiles one already formatted term on field, outside any
// proximity group.
func CompileTerm(term, field string) dsl.Query {
	return compileLeaf(term, operator.AND, field)
}
