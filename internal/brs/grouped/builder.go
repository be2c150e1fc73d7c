// Package grouped combines criteria scoped to different fields into one
// query:
//
//	dano adj2 moral .tipo.(resp ou aresp) nao .data.(>=2020-08-01 <2022-01-01)
//
// The plain text runs on the default field; each ".field.(...)" group runs
// on its own field. A Builder is mutated by a single owner and is not safe
// for concurrent use.
package grouped

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/compiler"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/dsl"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/operator"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/fields"
	apperrors "github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/errors"
)

// Combinator joins a segment to the ones before it.
type Combinator int

const (
	And Combinator = iota
	Or
	Not
)

func (c Combinator) String() string {
	switch c {
	case Or:
		return "OU"
	case Not:
		return "NAO"
	default:
		return "E"
	}
}

// ParseCombinator reads an operator token as a combinator. Proximity
// operators combine as E.
func ParseCombinator(token string) (Combinator, bool) {
	op, ok := operator.Parse(token)
	if !ok {
		return And, false
	}
	switch op.Kind {
	case operator.Or:
		return Or, true
	case operator.Not:
		return Not, true
	default:
		return And, true
	}
}

type Builder struct {
	defaultField string
	rawSuffix    string
	fields       fields.Map

	must    []dsl.Query
	mustNot []dsl.Query
	should  []dsl.Query

	display    strings.Builder
	advisories []string
}

// NewBuilder returns an empty builder. rawSuffix applies to defaultField;
// other fields take theirs from fm.
func NewBuilder(defaultField, rawSuffix string, fm fields.Map) *Builder {
	if defaultField == "" {
		defaultField = compiler.DefaultField
	}
	return &Builder{
		defaultField: defaultField,
		rawSuffix:    rawSuffix,
		fields:       fm,
	}
}

// Compile builds the query for a grouped expression.
func Compile(expr, defaultField, rawSuffix string, fm fields.Map) (*Builder, error) {
	b := NewBuilder(defaultField, rawSuffix, fm)
	if err := b.AddExpression(expr); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Builder) suffix(field string) (string, error) {
	if !b.fields.Allows(field, b.defaultField) {
		return "", apperrors.Invalidf(apperrors.ErrUnknownField, apperrors.MsgUnknownFieldFormat, field)
	}
	return b.fields.RawSuffix(field, b.defaultField, b.rawSuffix), nil
}

func (b *Builder) add(c Combinator, q dsl.Query, field, text string) {
	switch c {
	case Or:
		b.should = append(b.should, q)
		fmt.Fprintf(&b.display, " OU .%s.(%s)", field, text)
	case Not:
		b.mustNot = append(b.mustNot, q)
		fmt.Fprintf(&b.display, " NAO .%s.(%s)", field, text)
	default:
		b.must = append(b.must, q)
		if b.display.Len() > 0 {
			b.display.WriteString(" E")
		}
		fmt.Fprintf(&b.display, " .%s.(%s)", field, text)
	}
}

// AddSubquery adds an already compiled criteria.
func (b *Builder) AddSubquery(c Combinator, res *compiler.Result) {
	b.advisories = append(b.advisories, res.Advisories...)
	b.add(c, res.Query, res.Field, res.Canonical)
}

// AddTerm adds a single term on field. Quoted values search the field's raw
// subfield.
func (b *Builder) AddTerm(c Combinator, field, value string) error {
	if field == "" || strings.TrimSpace(value) == "" {
		return apperrors.Invalid(apperrors.ErrInvalidInput, apperrors.MsgMissingFieldValue)
	}
	suffix, err := b.suffix(field)
	if err != nil {
		return err
	}
	term := operator.FormatTerm(value)
	if strings.Contains(term, `"`) {
		field += suffix
	}
	b.add(c, compiler.CompileTerm(term, field), field, term)
	return nil
}

// AddRange adds a range on field. op and op2 are >, >=, <, <= (or gt, gte,
// lt, lte); op2 may be empty. The "=" operator adds a plain term instead.
func (b *Builder) AddRange(c Combinator, field, op, value, op2, value2 string) error {
	if field == "" || op == "" || value == "" {
		return apperrors.Invalid(apperrors.ErrInvalidInput, apperrors.MsgMissingFieldValue)
	}
	if _, err := b.suffix(field); err != nil {
		return err
	}
	if operator.HasWildcard(value) || operator.HasWildcard(value2) {
		return apperrors.Invalidf(apperrors.ErrRangeWildcard, apperrors.MsgRangeWildcardFormat, value, value2)
	}

	bound, ok := rangeOp(op)
	if !ok {
		b.add(c, dsl.Term{Field: field, Value: value}, field, "= "+value)
		return nil
	}
	r := dsl.Range{Field: field, Bounds: []dsl.Bound{{Op: bound, Value: operator.FormatTerm(value)}}}
	text := op + " " + value
	if bound2, ok := rangeOp(op2); ok && value2 != "" {
		r.Bounds = append(r.Bounds, dsl.Bound{Op: bound2, Value: operator.FormatTerm(value2)})
		text += " " + op2 + " " + value2
	}
	b.add(c, r, field, text)
	return nil
}

func rangeOp(op string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case ">", "gt":
		return "gt", true
	case ">=", "gte":
		return "gte", true
	case "<", "lt":
		return "lt", true
	case "<=", "lte":
		return "lte", true
	}
	return "", false
}

// Query combines everything added so far: E segments in must, OU segments
// in one bool{should} inside must, NAO segments in must_not.
func (b *Builder) Query() dsl.Query {
	if len(b.must) == 0 && len(b.mustNot) == 0 && len(b.should) == 0 {
		return dsl.MatchNone{}
	}
	must := append([]dsl.Query(nil), b.must...)
	if len(b.should) > 0 {
		must = append(must, dsl.Bool{Should: b.should})
	}
	return dsl.Bool{Must: must, MustNot: b.mustNot}
}

// Request wraps Query in a search body, with a highlighter on
// highlightField when it is set.
func (b *Builder) Request(highlightField string) dsl.Request {
	return dsl.Request{Query: b.Query(), HighlightField: highlightField}
}

// String is the display form of the combined criteria.
func (b *Builder) String() string {
	return strings.TrimSpace(b.display.String())
}

func (b *Builder) Advisories() []string {
	return b.advisories
}

func (b *Builder) DefaultField() string {
	return b.defaultField
}
