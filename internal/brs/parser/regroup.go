package parser

import "github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/operator"

// Regroup clusters runs joined by OU, ADJn or PROXn into their own groups so
// the precedence written implicitly by the user becomes explicit:
//
//	termo1 OU termo2 termo3                 -> (termo1 OU termo2) termo3
//	teste1 ADJ2 teste2 PROX3 teste3 teste4  -> (teste1 ADJ2 teste2) (teste2 PROX3 teste3) teste4
//
// Children are regrouped first. The top level is then re-clustered until it
// stops changing, which merges clusters left side by side by the first pass.
func Regroup(g *Node) *Node {
	res := regroupOnce(g, true)
	for i := 0; i <= g.Depth(); i++ {
		next := regroupOnce(res, false)
		if next.Equal(res) {
			break
		}
		res = next
	}
	return res
}

// groupingKind returns the kind of n when it is an operator that forms
// clusters. ADJ2 and ADJ5 share a cluster; the group slop takes the max.
func groupingKind(n *Node) (operator.Kind, bool) {
	if !n.IsOperator() || !n.Op.IsGrouping() {
		return 0, false
	}
	return n.Op.Kind, true
}

func regroupOnce(g *Node, recursive bool) *Node {
	items := g.Children
	res := make([]*Node, 0, len(items))

	var cluster []*Node
	var clusterKind operator.Kind
	clusterOpen := false

	flush := func() {
		res = append(res, Group(cluster...))
		cluster = nil
		clusterOpen = false
	}

	for i, item := range items {
		var prev, next *Node
		if i > 0 {
			prev = items[i-1]
		}
		if i < len(items)-1 {
			next = items[i+1]
		}
		nextKind, nextGroups := groupingKind(next)

		if recursive && item.IsGroup() {
			item = Regroup(item)
		}

		// doubled operator: the later one wins
		if item.IsOperator() && next.IsOperator() {
			continue
		}

		// two operands in a row end the cluster
		if !prev.IsOperator() && !item.IsOperator() && len(cluster) > 0 {
			flush()
		}

		switch {
		case !nextGroups && next.IsOperator() && len(cluster) > 0:
			cluster = append(cluster, item)
			flush()
		case nextGroups:
			if clusterOpen && clusterKind != nextKind {
				shared := clusterKind.IsSlop() && nextKind.IsSlop()
				cluster = append(cluster, item)
				flush()
				if shared {
					cluster = []*Node{item}
					clusterKind = nextKind
					clusterOpen = true
				}
				continue
			}
			cluster = append(cluster, item)
			clusterKind = nextKind
			clusterOpen = true
		case len(cluster) > 0:
			cluster = append(cluster, item)
		default:
			res = append(res, item)
		}
	}
	if len(cluster) > 0 {
		flush()
	}
	return Group(res...)
}
