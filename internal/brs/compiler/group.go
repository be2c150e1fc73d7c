package compiler

import (
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/dsl"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/operator"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/parser"
)

// compileGroup compiles a normalised group. NAO applies to the next sibling
// only and always produces a plain clause in must_not. ADJ/PROX groups
// become a single span_near; everything else a bool, except that a lone
// must clause is returned unwrapped.
func (c *compiler) compileGroup(g *parser.Node) (dsl.Query, error) {
	op, err := parser.Resolve(g)
	if err != nil {
		return nil, err
	}

	var must, mustNot, should, spans []dsl.Query
	slopField := c.groupField(g)
	negate := false

	for _, child := range g.Children {
		switch {
		case child.IsNot():
			negate = true
			continue
		case child.IsOperator():
			continue
		case child.IsGroup():
			q, err := c.compileGroup(child)
			if err != nil {
				return nil, err
			}
			switch {
			case negate:
				mustNot = append(mustNot, q)
			case op.Kind == operator.Or:
				should = append(should, q)
			default:
				must = append(must, q)
			}
		default:
			if negate {
				mustNot = append(mustNot, compileLeaf(child.Text, operator.AND, c.termField(child.Text)))
				break
			}
			if op.IsSlop() {
				spans = append(spans, compileLeaf(child.Text, op, slopField))
				break
			}
			q := compileLeaf(child.Text, op, c.termField(child.Text))
			if op.Kind == operator.Or {
				should = append(should, q)
			} else {
				must = append(must, q)
			}
		}
		negate = false
	}

	if len(spans) > 0 {
		return dsl.SpanNear{
			Clauses: spans,
			Slop:    op.Slop(),
			InOrder: op.Kind == operator.Adj,
		}, nil
	}
	if len(must) == 1 && len(mustNot) == 0 && len(should) == 0 {
		return must[0], nil
	}
	return dsl.Bool{Must: must, MustNot: mustNot, Should: should}, nil
}
