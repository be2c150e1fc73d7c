package dsl

import "github.com/valyala/fastjson"

// MaxAnalyzedOffset is the highlight analysis limit sent with every
// highlight request; long legal texts exceed the engine default.
const MaxAnalyzedOffset = 1000000

// Request is the search body: the query and, when HighlightField is set, a
// plain highlighter on that field with document sources suppressed.
type Request struct {
	Query          Query
	HighlightField string
}

func (r Request) Value(a *fastjson.Arena) *fastjson.Value {
	o := a.NewObject()
	o.Set("query", Value(a, r.Query))
	if r.HighlightField == "" {
		return o
	}

	field := a.NewObject()
	field.Set("require_field_match", a.NewFalse())
	field.Set("max_analyzed_offset", a.NewNumberInt(MaxAnalyzedOffset))
	fields := a.NewObject()
	fields.Set(r.HighlightField, field)
	highlight := a.NewObject()
	highlight.Set("type", a.NewString("plain"))
	highlight.Set("fields", fields)
	o.Set("highlight", highlight)

	source := a.NewArray()
	source.SetArrayItem(0, a.NewString(""))
	o.Set("_source", source)
	return o
}

func (r Request) Marshal() []byte {
	a := arenas.Get()
	defer arenas.Put(a)
	return r.Value(a).MarshalTo(nil)
}

func (r Request) MarshalJSON() ([]byte, error) {
	return r.Marshal(), nil
}
