package parser

import "strings"

// Options tune a parse.
type Options struct {
	// Subgroup marks criteria taken from inside a ".field.(...)" group.
	Subgroup bool
}

// Tree is a parsed criteria expression.
type Tree struct {
	Root *Node
}

// Parse runs the whole normalisation pipeline over criteria. The only errors
// are unbalanced parentheses.
func Parse(criteria string, opts Options) (*Tree, error) {
	root, err := Bracket(strings.TrimSpace(criteria), opts.Subgroup)
	if err != nil {
		return nil, err
	}
	root = Flatten(root)
	root = JoinQuotes(root)
	root = Format(root)
	root = Regroup(root)
	root = Flatten(root)
	root = Validate(root)
	root = Flatten(root)
	return &Tree{Root: root}, nil
}

// String is the canonical criteria string.
func (t *Tree) String() string {
	return t.Root.String()
}

// Empty reports whether no searchable term survived normalisation.
func (t *Tree) Empty() bool {
	return len(t.Root.Terms()) == 0
}

// HasProximity reports whether any ADJ or PROX operator survived.
func (t *Tree) HasProximity() bool {
	return walkOperators(t.Root, func(n *Node) bool { return n.Op.IsSlop() })
}

// HasOperators reports whether any E, OU or NAO operator survived.
func (t *Tree) HasOperators() bool {
	return walkOperators(t.Root, func(n *Node) bool { return !n.Op.IsSlop() })
}

func walkOperators(n *Node, match func(*Node) bool) bool {
	if n.IsOperator() {
		return match(n)
	}
	for _, c := range n.Children {
		if walkOperators(c, match) {
			return true
		}
	}
	return false
}
