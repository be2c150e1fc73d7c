package parser

import "github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/operator"

// Validate fixes the operators of every list:
//   - an operator followed by another operator is dropped (the later wins)
//   - a leading operator other than NAO and a trailing operator are dropped
//   - ADJ/PROX next to a group become E, proximity cannot take a group
//   - E is inserted between two operands written side by side
func Validate(g *Node) *Node {
	items := g.Children
	out := make([]*Node, 0, len(items)*2)
	for i, item := range items {
		var prev, next *Node
		if i > 0 {
			prev = items[i-1]
		}
		if i < len(items)-1 {
			next = items[i+1]
		}

		if item.IsOperator() {
			if next.IsOperator() || next == nil {
				continue
			}
			if i == 0 && !item.IsNot() {
				continue
			}
			if (prev.IsGroup() || next.IsGroup()) && !item.Op.CanBorderGroup() {
				item = Op(operator.AND)
			}
		} else if prev != nil && !prev.IsOperator() {
			out = append(out, Op(operator.AND))
		}

		if item.IsGroup() {
			item = Validate(item)
		}
		out = append(out, item)
	}
	return Group(out...)
}

// Flatten drops empty groups and unwraps singleton groups at any depth. The
// root stays a group; a root holding a single group is replaced by it.
func Flatten(root *Node) *Node {
	children := flattenChildren(root.Children)
	if len(children) == 1 && children[0].IsGroup() {
		return children[0]
	}
	return Group(children...)
}

func flattenChildren(children []*Node) []*Node {
	out := make([]*Node, 0, len(children))
	for _, c := range children {
		if c.IsGroup() {
			c = flattenGroup(c)
			if c == nil {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func flattenGroup(g *Node) *Node {
	children := flattenChildren(g.Children)
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	}
	return Group(children...)
}
