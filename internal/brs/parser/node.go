// Package parser turns a BRS criteria string into a normalised criteria tree.
//
// The pipeline is: Bracket, Flatten, JoinQuotes, Format, Regroup, Flatten,
// Validate, Flatten. The resulting tree renders back to the canonical
// criteria string shown to the user.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/operator"
)

type NodeType int

const (
	TermNode NodeType = iota
	OperatorNode
	GroupNode
)

func (t NodeType) String() string {
	switch t {
	case TermNode:
		return "term"
	case OperatorNode:
		return "operator"
	case GroupNode:
		return "group"
	default:
		return "unknown"
	}
}

// Node is one element of a criteria tree: a term, an operator marker or a
// parenthesised group. Only the fields matching Type are set.
type Node struct {
	Type     NodeType
	Text     string
	Op       operator.Operator
	Children []*Node
}

func Term(text string) *Node {
	return &Node{Type: TermNode, Text: text}
}

func Op(op operator.Operator) *Node {
	return &Node{Type: OperatorNode, Op: op}
}

func Group(children ...*Node) *Node {
	return &Node{Type: GroupNode, Children: children}
}

func (n *Node) IsTerm() bool     { return n != nil && n.Type == TermNode }
func (n *Node) IsOperator() bool { return n != nil && n.Type == OperatorNode }
func (n *Node) IsGroup() bool    { return n != nil && n.Type == GroupNode }

// IsNot reports whether n is the NAO marker.
func (n *Node) IsNot() bool {
	return n.IsOperator() && n.Op.Kind == operator.Not
}

// IsQuoted reports whether a term carries a double quote, which routes it to
// the raw subfield.
func (n *Node) IsQuoted() bool {
	return n.IsTerm() && strings.Contains(n.Text, `"`)
}

// Equal compares two trees structurally.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Type != o.Type {
		return false
	}
	switch n.Type {
	case TermNode:
		return n.Text == o.Text
	case OperatorNode:
		return n.Op == o.Op
	}
	if len(n.Children) != len(o.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

// Depth is the group nesting depth; a term has depth 0.
func (n *Node) Depth() int {
	if !n.IsGroup() {
		return 0
	}
	d := 0
	for _, c := range n.Children {
		d = max(d, c.Depth())
	}
	return d + 1
}

// String renders the tree in canonical form. The root group is rendered
// without parentheses; nested groups are wrapped as "(a E b)".
func (n *Node) String() string {
	var sb strings.Builder
	switch n.Type {
	case TermNode:
		sb.WriteString(n.Text)
	case OperatorNode:
		sb.WriteString(n.Op.String())
	case GroupNode:
		writeChildren(&sb, n.Children)
	}
	return sb.String()
}

func writeChildren(sb *strings.Builder, children []*Node) {
	for i, c := range children {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if c.IsGroup() {
			sb.WriteByte('(')
			writeChildren(sb, c.Children)
			sb.WriteByte(')')
			continue
		}
		sb.WriteString(c.String())
	}
}

// Terms returns every term of the tree in order, ignoring operators.
func (n *Node) Terms() []string {
	var out []string
	var walk func(*Node)
	walk = func(x *Node) {
		switch x.Type {
		case TermNode:
			out = append(out, x.Text)
		case GroupNode:
			for _, c := range x.Children {
				walk(c)
			}
		}
	}
	walk(n)
	return out
}
