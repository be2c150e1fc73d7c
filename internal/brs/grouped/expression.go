package grouped

import (
	"regexp"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/compiler"
	apperrors "github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/errors"
)

var (
	reFieldMarker = regexp.MustCompile(`\.(\w+)\.\(`)
	reRangeOp     = regexp.MustCompile(`>=|<=|>|<`)
)

// segment is one piece of a grouped expression. field is empty for plain
// criteria on the default field.
type segment struct {
	combinator Combinator
	field      string
	text       string
}

// AddExpression splits expr on its ".field.(...)" groups and adds every
// piece. Nothing is added when expr is invalid.
func (b *Builder) AddExpression(expr string) error {
	segments, err := splitSegments(expr)
	if err != nil {
		return err
	}

	type compiled struct {
		seg segment
		res *compiler.Result
	}
	var out []compiled
	for _, seg := range segments {
		field := seg.field
		if field == "" {
			field = b.defaultField
		}
		suffix, err := b.suffix(field)
		if err != nil {
			return err
		}
		if seg.field != "" && reRangeOp.MatchString(seg.text) {
			if err := b.validateRange(seg); err != nil {
				return err
			}
			out = append(out, compiled{seg: seg})
			continue
		}
		res, err := compiler.Compile(seg.text, compiler.Options{
			Field:     field,
			RawSuffix: suffix,
			Subgroup:  true,
		})
		if err != nil {
			return err
		}
		out = append(out, compiled{seg: seg, res: res})
	}

	for _, c := range out {
		if c.res == nil {
			b.addRangeSegment(c.seg)
			continue
		}
		b.AddSubquery(c.seg.combinator, c.res)
	}
	return nil
}

// splitSegments cuts expr into plain and field segments. The token right
// before a field group is its combinator.
func splitSegments(expr string) ([]segment, error) {
	if err := checkParens(expr); err != nil {
		return nil, err
	}

	var segments []segment
	first := true
	rest := expr
	for {
		loc := reFieldMarker.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		root := strings.TrimSpace(rest[:loc[0]])
		field := rest[loc[2]:loc[3]]
		body := rest[loc[1]:]

		if openParens(root) > 0 {
			return nil, apperrors.Invalid(apperrors.ErrFieldOperatorInsideParens, apperrors.MsgFieldInsideParens)
		}
		words := strings.Fields(root)
		combinator := And
		if len(words) > 0 {
			if c, ok := ParseCombinator(words[len(words)-1]); ok {
				combinator = c
				words = words[:len(words)-1]
			}
		}
		if err := checkLeadingOr(words); err != nil {
			return nil, err
		}
		if first && combinator == Or {
			return nil, apperrors.Invalid(apperrors.ErrLeadingOr, apperrors.MsgLeadingOr)
		}
		first = false

		end := closingParen(body)
		if end < 0 {
			return nil, apperrors.Invalid(apperrors.ErrUnmatchedOpen,
				apperrors.MsgMissingClose+" "+apperrors.MsgSubgroupParens)
		}
		if len(words) > 0 {
			segments = append(segments, segment{combinator: And, text: strings.Join(words, " ")})
		}
		if text := strings.TrimSpace(body[:end]); text != "" {
			segments = append(segments, segment{combinator: combinator, field: field, text: text})
		}
		rest = body[end+1:]
	}

	if root := strings.TrimSpace(rest); root != "" {
		if !first {
			if err := checkLeadingOr(strings.Fields(root)); err != nil {
				return nil, err
			}
		}
		segments = append(segments, segment{combinator: And, text: root})
	}
	return segments, nil
}

// openParens counts the parentheses still open at the end of s.
func openParens(s string) int {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}

func checkParens(expr string) error {
	open, closed := strings.Count(expr, "("), strings.Count(expr, ")")
	switch {
	case open > closed:
		return apperrors.Invalid(apperrors.ErrUnmatchedOpen, apperrors.MsgMissingClose)
	case closed > open:
		return apperrors.Invalid(apperrors.ErrUnmatchedClose, apperrors.MsgExtraClose)
	}
	return nil
}

// checkLeadingOr rejects plain criteria that open with OU: OU cannot join a
// field group to plain criteria.
func checkLeadingOr(words []string) error {
	if len(words) == 0 {
		return nil
	}
	if c, ok := ParseCombinator(words[0]); ok && c == Or {
		return apperrors.Invalid(apperrors.ErrLeadingOr, apperrors.MsgLeadingOr)
	}
	return nil
}

// closingParen returns the index of the ')' closing a group whose '(' was
// just consumed, or -1.
func closingParen(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}
