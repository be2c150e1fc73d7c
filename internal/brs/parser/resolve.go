package parser

import (
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/operator"
	apperrors "github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/errors"
)

// Resolve returns the operator governing a group: the kind of the last
// operator other than NAO and the largest N among them. A group without such
// operators resolves to E with N 0.
//
// Proximity needs a flat list of terms, so a group mixing ADJ/PROX with E,
// OU or a nested group fails with ErrMixedOperator.
func Resolve(g *Node) (operator.Operator, error) {
	resolved := operator.Operator{Kind: operator.And}
	var hasSlop, hasPlain, hasGroup bool
	for _, c := range g.Children {
		switch {
		case c.IsGroup():
			hasGroup = true
		case c.IsNot(), c.IsTerm():
		case c.IsOperator():
			if c.Op.IsSlop() {
				hasSlop = true
			} else {
				hasPlain = true
			}
			resolved.Kind = c.Op.Kind
			resolved.N = max(resolved.N, c.Op.N)
		}
	}
	if hasSlop && (hasPlain || hasGroup) {
		return operator.Operator{}, apperrors.Invalidf(apperrors.ErrMixedOperator,
			apperrors.MsgMixedOperatorsFormat, "("+g.String()+")")
	}
	return resolved, nil
}
