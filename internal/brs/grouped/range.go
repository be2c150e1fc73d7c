package grouped

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/operator"
	apperrors "github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/errors"
)

// rangeSpec is a field group written as up to two comparisons:
// ">=2020-08-01 <='2022-01-01'" or ">100".
type rangeSpec struct {
	op, value   string
	op2, value2 string
}

var rangeValueCleaner = strings.NewReplacer("/", "-", `"`, "", "'", "")

func parseRange(text string) rangeSpec {
	ops := reRangeOp.FindAllString(text, 2)
	values := reRangeOp.Split(text, 3)

	var r rangeSpec
	if len(ops) > 0 && len(values) > 1 {
		r.op, r.value = ops[0], rangeValue(values[1])
	}
	if len(ops) > 1 && len(values) > 2 {
		r.op2, r.value2 = ops[1], rangeValue(values[2])
	}
	return r
}

// rangeValue keeps the first word of a value, so "2020-08-01 E" reads as
// "2020-08-01". Dates may use '/' or '-'.
func rangeValue(s string) string {
	words := strings.Fields(rangeValueCleaner.Replace(s))
	if len(words) == 0 {
		return ""
	}
	return words[0]
}

func (b *Builder) validateRange(seg segment) error {
	r := parseRange(seg.text)
	if operator.HasWildcard(r.value) || operator.HasWildcard(r.value2) {
		return apperrors.Invalidf(apperrors.ErrRangeWildcard, apperrors.MsgRangeWildcardFormat, r.value, r.value2)
	}
	return nil
}

// addRangeSegment adds a validated range segment. A comparison without a
// value adds nothing.
func (b *Builder) addRangeSegment(seg segment) {
	r := parseRange(seg.text)
	if r.op == "" || r.value == "" {
		return
	}
	// field and values were checked by validateRange
	_ = b.AddRange(seg.combinator, seg.field, r.op, r.value, r.op2, r.value2)
}
