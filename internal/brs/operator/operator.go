// Package operator classifies BRS criteria tokens and normalises search terms.
//
// Operators are recognised case-insensitively in their Portuguese and English
// spellings (E/AND, OU/OR, NÃO/NAO/NOT) plus the proximity family ADJn, PROXn
// and COM. Every function in this package is pure.
package operator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the family an operator belongs to.
type Kind int

const (
	And Kind = iota
	Or
	Not
	Adj
	Prox
)

// ComDistance is the PROX distance used to approximate the BRS "same
// paragraph" operator COM.
const ComDistance = 30

var (
	reProximityToken = regexp.MustCompile(`(?i)^(adjc?\d*|proxc?\d*|com)$`)
	reDigits         = regexp.MustCompile(`\d+`)
)

// Operator is a canonical operator: its kind and numeric suffix. N defaults to
// 1 when the token carries no digits.
type Operator struct {
	Kind Kind
	N    int
}

var (
	AND  = Operator{Kind: And, N: 1}
	OR   = Operator{Kind: Or, N: 1}
	NOT  = Operator{Kind: Not, N: 1}
	ADJ1 = Operator{Kind: Adj, N: 1}
)

// IsOperator reports whether token is an operator in any accepted spelling.
func IsOperator(token string) bool {
	_, ok := Parse(token)
	return ok
}

// Parse classifies token. The second result is false for search terms.
func Parse(token string) (Operator, bool) {
	lower := strings.ToLower(token)
	switch lower {
	case "e", "and":
		return AND, true
	case "ou", "or":
		return OR, true
	case "não", "nao", "not":
		return NOT, true
	}
	if !reProximityToken.MatchString(lower) {
		return Operator{}, false
	}
	switch {
	case strings.HasPrefix(lower, "adj"):
		return Operator{Kind: Adj, N: suffixN(lower)}, true
	case strings.HasPrefix(lower, "prox"):
		return Operator{Kind: Prox, N: suffixN(lower)}, true
	default:
		return Operator{Kind: Prox, N: ComDistance}, true
	}
}

// Canonical returns the canonical spelling of an operator token, or the token
// unchanged when it is not an operator.
func Canonical(token string) string {
	if op, ok := Parse(token); ok {
		return op.String()
	}
	return token
}

func suffixN(token string) int {
	digits := reDigits.FindString(token)
	if digits == "" {
		return 1
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 1
	}
	return n
}

// IsSlop reports whether the operator is a proximity (span) operator.
func (o Operator) IsSlop() bool {
	return o.Kind.IsSlop()
}

func (k Kind) IsSlop() bool {
	return k == Adj || k == Prox
}

// IsGrouping reports whether runs of this operator are clustered into their
// own group by the regrouper (ADJ, PROX and OU).
func (o Operator) IsGrouping() bool {
	return o.IsSlop() || o.Kind == Or
}

// CanBorderGroup reports whether the operator may sit next to a parenthesised
// group. Proximity operators cannot take a whole group as an operand.
func (o Operator) CanBorderGroup() bool {
	return o.Kind == And || o.Kind == Or || o.Kind == Not
}

// Slop is the span_near slop for this operator's distance.
func (o Operator) Slop() int {
	return max(0, o.N-1)
}

func (o Operator) String() string {
	switch o.Kind {
	case And:
		return "E"
	case Or:
		return "OU"
	case Not:
		return "NAO"
	case Adj:
		return fmt.Sprintf("ADJ%d", o.N)
	case Prox:
		return fmt.Sprintf("PROX%d", o.N)
	default:
		return "?"
	}
}

func (k Kind) String() string {
	switch k {
	case And:
		return "E"
	case Or:
		return "OU"
	case Not:
		return "NAO"
	case Adj:
		return "ADJ"
	case Prox:
		return "PROX"
	default:
		return "unknown"
	}
}
