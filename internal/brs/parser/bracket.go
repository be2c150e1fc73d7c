package parser

import (
	"strings"
	"unicode"

	apperrors "github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/errors"
)

// QuoteMarker is the raw token produced for every double quote.
const QuoteMarker = `"`

// Bracket splits the raw criteria into tokens and nests them following the
// parentheses. Single quotes count as double quotes and every quote becomes
// its own token. Terms are kept raw; nothing is formatted yet.
//
// subgroup marks criteria taken from inside a ".field.(...)" group so the
// parenthesis errors can say so.
func Bracket(criteria string, subgroup bool) (*Node, error) {
	criteria = strings.ReplaceAll(criteria, "'", QuoteMarker)

	stack := []*Node{Group()}
	var current strings.Builder
	flush := func() {
		if current.Len() == 0 {
			return
		}
		top := stack[len(stack)-1]
		top.Children = append(top.Children, Term(current.String()))
		current.Reset()
	}

	for _, r := range criteria {
		switch {
		case r == '(':
			flush()
			child := Group()
			top := stack[len(stack)-1]
			top.Children = append(top.Children, child)
			stack = append(stack, child)
		case r == ')':
			flush()
			if len(stack) == 1 {
				return nil, parenError(apperrors.ErrUnmatchedClose, apperrors.MsgExtraClose, subgroup)
			}
			stack = stack[:len(stack)-1]
		case r == '"':
			flush()
			current.WriteRune(r)
			flush()
		case unicode.IsSpace(r):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	if len(stack) > 1 {
		return nil, parenError(apperrors.ErrUnmatchedOpen, apperrors.MsgMissingClose, subgroup)
	}
	return stack[0], nil
}

func parenError(sentinel error, msg string, subgroup bool) error {
	if subgroup {
		msg += " " + apperrors.MsgSubgroupParens
	}
	return apperrors.Invalid(sentinel, msg)
}
