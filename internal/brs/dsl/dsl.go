// Package dsl models the search-engine query clauses produced by the
// compiler and renders them as JSON with a stable key order.
package dsl

import (
	"github.com/valyala/fastjson"
)

// Query is a compiled query clause. The set of implementations is closed.
type Query interface {
	// Kind is the clause name, e.g. "term" or "span_near".
	Kind() string
	body(a *fastjson.Arena) *fastjson.Value
}

var arenas fastjson.ArenaPool

// Value renders q as {"<kind>": {...}} on the given arena.
func Value(a *fastjson.Arena, q Query) *fastjson.Value {
	o := a.NewObject()
	o.Set(q.Kind(), q.body(a))
	return o
}

// Marshal renders q as JSON.
func Marshal(q Query) []byte {
	a := arenas.Get()
	defer arenas.Put(a)
	return Value(a, q).MarshalTo(nil)
}

// String is Marshal as a string, handy for logs and tests.
func String(q Query) string {
	return string(Marshal(q))
}

func queryArray(a *fastjson.Arena, qs []Query) *fastjson.Value {
	arr := a.NewArray()
	for i, q := range qs {
		arr.SetArrayItem(i, Value(a, q))
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

func boolValue(a *fastjson.Arena, b bool) *fastjson.Value {
	if b {
		return a.NewTrue()
	}
	return a.NewFalse()
}

func fieldValue(a *fastjson.Arena, field string, v *fastjson.Value) *fastjson.Value {
	o := a.NewObject()
	o.Set(field, v)
	return o
}

func patternValue(a *fastjson.Arena, field, value string) *fastjson.Value {
	p := a.NewObject()
	p.Set("case_insensitive", a.NewTrue())
	p.Set("value", a.NewString(value))
	return fieldValue(a, field, p)
}

// Term is an exact term match.
type Term struct {
	Field string
	Value string
}

func (Term) Kind() string { return "term" }
func (q Term) body(a *fastjson.Arena) *fastjson.Value {
	return fieldValue(a, q.Field, a.NewString(q.Value))
}
func (q Term) MarshalJSON() ([]byte, error) { return Marshal(q), nil }

// Wildcard matches a case-insensitive '*' pattern.
type Wildcard struct {
	Field string
	Value string
}

func (Wildcard) Kind() string { return "wildcard" }
func (q Wildcard) body(a *fastjson.Arena) *fastjson.Value {
	return patternValue(a, q.Field, q.Value)
}
func (q Wildcard) MarshalJSON() ([]byte, error) { return Marshal(q), nil }

// Regexp matches a case-insensitive regular expression.
type Regexp struct {
	Field string
	Value string
}

func (Regexp) Kind() string { return "regexp" }
func (q Regexp) body(a *fastjson.Arena) *fastjson.Value {
	return patternValue(a, q.Field, q.Value)
}
func (q Regexp) MarshalJSON() ([]byte, error) { return Marshal(q), nil }

// SpanTerm is a term usable as a span_near clause.
type SpanTerm struct {
	Field string
	Value string
}

func (SpanTerm) Kind() string { return "span_term" }
func (q SpanTerm) body(a *fastjson.Arena) *fastjson.Value {
	return fieldValue(a, q.Field, a.NewString(q.Value))
}
func (q SpanTerm) MarshalJSON() ([]byte, error) { return Marshal(q), nil }

// SpanMulti wraps a Wildcard or Regexp so it can sit inside a span_near.
type SpanMulti struct {
	Match Query
}

func (SpanMulti) Kind() string { return "span_multi" }
func (q SpanMulti) body(a *fastjson.Arena) *fastjson.Value {
	return fieldValue(a, "match", Value(a, q.Match))
}
func (q SpanMulti) MarshalJSON() ([]byte, error) { return Marshal(q), nil }

// SpanNear matches its clauses within Slop positions of each other.
type SpanNear struct {
	Clauses []Query
	Slop    int
	InOrder bool
}

func (SpanNear) Kind() string { return "span_near" }
func (q SpanNear) body(a *fastjson.Arena) *fastjson.Value {
	o := a.NewObject()
	o.Set("clauses", queryArray(a, q.Clauses))
	o.Set("slop", a.NewNumberInt(q.Slop))
	o.Set("in_order", boolValue(a, q.InOrder))
	return o
}
func (q SpanNear) MarshalJSON() ([]byte, error) { return Marshal(q), nil }

// Bool combines clauses; empty lists are omitted from the output.
type Bool struct {
	Must    []Query
	MustNot []Query
	Should  []Query
}

func (Bool) Kind() string { return "bool" }
func (q Bool) body(a *fastjson.Arena) *fastjson.Value {
	o := a.NewObject()
	if len(q.Must) > 0 {
		o.Set("must", queryArray(a, q.Must))
	}
	if len(q.MustNot) > 0 {
		o.Set("must_not", queryArray(a, q.MustNot))
	}
	if len(q.Should) > 0 {
		o.Set("should", queryArray(a, q.Should))
	}
	return o
}
func (q Bool) MarshalJSON() ([]byte, error) { return Marshal(q), nil }

// IsEmpty reports a bool with no clause at all.
func (q Bool) IsEmpty() bool {
	return len(q.Must) == 0 && len(q.MustNot) == 0 && len(q.Should) == 0
}

// MoreLikeThis finds documents similar to the Like text.
type MoreLikeThis struct {
	Fields             []string
	Like               string
	Unlike             []string
	MinTermFreq        int
	MinDocFreq         int
	MaxQueryTerms      int
	MinimumShouldMatch string
}

func (MoreLikeThis) Kind() string { return "more_like_this" }
func (q MoreLikeThis) body(a *fastjson.Arena) *fastjson.Value {
	o := a.NewObject()
	o.Set("fields", stringArray(a, q.Fields))
	o.Set("like", a.NewString(q.Like))
	o.Set("unlike", stringArray(a, q.Unlike))
	o.Set("min_term_freq", a.NewNumberInt(q.MinTermFreq))
	o.Set("min_doc_freq", a.NewNumberInt(q.MinDocFreq))
	o.Set("max_query_terms", a.NewNumberInt(q.MaxQueryTerms))
	o.Set("minimum_should_match", a.NewString(q.MinimumShouldMatch))
	return o
}
func (q MoreLikeThis) MarshalJSON() ([]byte, error) { return Marshal(q), nil }

// Bound is one side of a range: Op is gt, gte, lt or lte.
type Bound struct {
	Op    string
	Value string
}

// Range limits a field to one or two bounds.
type Range struct {
	Field  string
	Bounds []Bound
}

func (Range) Kind() string { return "range" }
func (q Range) body(a *fastjson.Arena) *fastjson.Value {
	b := a.NewObject()
	for _, bound := range q.Bounds {
		b.Set(bound.Op, a.NewString(bound.Value))
	}
	return fieldValue(a, q.Field, b)
}
func (q Range) MarshalJSON() ([]byte, error) { return Marshal(q), nil }

// MatchNone matches nothing.
type MatchNone struct{}

func (MatchNone) Kind() string { return "match_none" }
func (MatchNone) body(a *fastjson.Arena) *fastjson.Value {
	return a.NewObject()
}
func (q MatchNone) MarshalJSON() ([]byte, error) { return Marshal(q), nil }
