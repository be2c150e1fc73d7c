// Package compiler compiles BRS criteria into a search query.
//
// Compile is pure: it performs no I/O and keeps no state between calls, so
// it is safe for concurrent use.
package compiler

import (
	"regexp"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/dsl"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/errors"
)

// DefaultField is searched when Options.Field is empty.
const DefaultField = "texto"

var reFieldMarker = regexp.MustCompile(`\.\w+\.\(`)

// HasFieldMarker reports whether criteria scopes part of itself to a field
// with ".field.(...)".
func HasFieldMarker(criteria string) bool {
	return reFieldMarker.MatchString(criteria)
}

type Mode string

const (
	ModeCriteria  Mode = "criteria"
	ModeProximity Mode = "proximity"
	ModeContains  Mode = "contains"
)

type Options struct {
	Field string
	// RawSuffix is appended to Field for quoted terms, e.g. ".raw".
	RawSuffix string
	// Subgroup is set when compiling the inside of a ".field.(...)" group.
	Subgroup bool
}

// Diagnostics records what the criteria used. It is returned with each
// result and never shared between calls.
type Diagnostics struct {
	UsesProximity bool
	UsesOperators bool
	AutoContains  bool
}

type Result struct {
	Field     string
	Canonical string
	// Criteria is the normalised tree; nil for smart searches.
	Criteria    *parser.Node
	Query       dsl.Query
	Mode        Mode
	Advisories  []string
	Diagnostics Diagnostics
}

// Request is the search body for the compiled query.
func (r *Result) Request() dsl.Request {
	return dsl.Request{Query: r.Query}
}

// HighlightRequest is Request with a highlighter on the searched field.
func (r *Result) HighlightRequest() dsl.Request {
	return dsl.Request{Query: r.Query, HighlightField: r.Field}
}

func (r *Result) String() string {
	return r.Canonical
}

type compiler struct {
	field     string
	rawSuffix string
}

// Compile parses criteria and compiles it into a query. Failures are
// *errors.AppError values whose message is meant for the end user.
func Compile(criteria string, opts Options) (*Result, error) {
	field := opts.Field
	if field == "" {
		field = DefaultField
	}
	c := &compiler{field: field, rawSuffix: opts.RawSuffix}
	criteria = strings.TrimSpace(criteria)

	if HasFieldMarker(criteria) {
		if opts.Subgroup {
			return nil, apperrors.Invalid(apperrors.ErrFieldOperatorInsideParens, apperrors.MsgFieldInsideParens)
		}
		return nil, apperrors.Invalid(apperrors.ErrFieldOperatorInSimpleContext, apperrors.MsgFieldInSimpleSearch)
	}

	res := &Result{Field: field, Mode: ModeCriteria}

	prefix, text, smart := smartPrefix(criteria)
	if !smart && looksLikeText(criteria) {
		prefix, text, smart = "contem", criteria, true
		res.Diagnostics.AutoContains = true
		res.Advisories = append(res.Advisories, AdvisoryAutoContains)
	}
	if smart {
		c.smartSearch(prefix, text, res)
		return res, nil
	}

	tree, err := parser.Parse(strings.TrimPrefix(criteria, ":"), parser.Options{Subgroup: opts.Subgroup})
	if err != nil {
		return nil, err
	}
	res.Criteria = tree.Root
	res.Canonical = tree.String()
	res.Diagnostics.UsesProximity = tree.HasProximity()
	res.Diagnostics.UsesOperators = tree.HasOperators()

	if tree.Empty() {
		res.Query = dsl.MatchNone{}
		return res, nil
	}
	res.Query, err = c.compileGroup(tree.Root)
	if err != nil {
		return nil, err
	}
	return res, nil
}
