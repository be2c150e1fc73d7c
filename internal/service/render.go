package service

import (
	"github.com/valyala/fastjson"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/compiler"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/grouped"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/parser"
)

// ModeGrouped labels responses of grouped criteria.
const ModeGrouped = "grouped"

var (
	arenas  fastjson.ArenaPool
	parsers fastjson.ParserPool
)

// renderCompile renders
//
//	{"canonical": ..., "mode": ..., "criteria": [...], "query": {...}, "advisories": [...]}
//
// where query is the full search body and criteria the normalised tree as
// nested arrays (null for smart searches).
func renderCompile(res *compiler.Result, highlight bool) []byte {
	a := arenas.Get()
	defer arenas.Put(a)

	req := res.Request()
	if highlight {
		req = res.HighlightRequest()
	}
	o := a.NewObject()
	o.Set("canonical", a.NewString(res.Canonical))
	o.Set("mode", a.NewString(string(res.Mode)))
	if res.Criteria != nil {
		o.Set("criteria", nodeValue(a, res.Criteria))
	} else {
		o.Set("criteria", a.NewNull())
	}
	o.Set("query", req.Value(a))
	o.Set("advisories", stringArray(a, res.Advisories))
	return o.MarshalTo(nil)
}

func renderGrouped(b *grouped.Builder, highlight bool) []byte {
	a := arenas.Get()
	defer arenas.Put(a)

	req := b.Request("")
	if highlight {
		req = b.Request(b.DefaultField())
	}
	o := a.NewObject()
	o.Set("canonical", a.NewString(b.String()))
	o.Set("mode", a.NewString(ModeGrouped))
	o.Set("query", req.Value(a))
	o.Set("advisories", stringArray(a, b.Advisories()))
	return o.MarshalTo(nil)
}

func nodeValue(a *fastjson.Arena, n *parser.Node) *fastjson.Value {
	switch n.Type {
	case parser.TermNode:
		return a.NewString(n.Text)
	case parser.OperatorNode:
		return a.NewString(n.Op.String())
	}
	arr := a.NewArray()
	for i, c := range n.Children {
		arr.SetArrayItem(i, nodeValue(a, c))
	}
	return arr
}

func stringArray(a *fastjson.Arena, ss []string) *fastjson.Value {
	arr := a.NewArray()
	for i, s := range ss {
		arr.SetArrayItem(i, a.NewString(s))
	}
	return arr
}

// summary is what the audit trail needs from a rendered response.
type summary struct {
	mode       string
	canonical  string
	advisories int
}

func summarize(body []byte) summary {
	p := parsers.Get()
	defer parsers.Put(p)
	v, err := p.ParseBytes(body)
	if err != nil {
		return summary{}
	}
	return summary{
		mode:       string(v.GetStringBytes("mode")),
		canonical:  string(v.GetStringBytes("canonical")),
		advisories: len(v.GetArray("advisories")),
	}
}
