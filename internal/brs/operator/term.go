package operator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reNumeric      = regexp.MustCompile(`^[\d?*][\d:?*.,\-_/]*[\d?*]$`)
	reThousands    = regexp.MustCompile(`^[\d?*][\d?*.,]*[\d?*]$`)
	reWildcardOnly = regexp.MustCompile(`^[?*_$]+$`)
	reNumericSep   = regexp.MustCompile(`[.\-_/,:]+`)
	reNonTerm      = regexp.MustCompile(`[^A-Za-z\d?*$"]`)
	reQuoteSpace   = regexp.MustCompile(` *" *`)
	reQuestionRun  = regexp.MustCompile(`\?+`)
	reStarRun      = regexp.MustCompile(`[*$]+`)
)

// OptionalSeparator replaces numeric separators so that "25/06/1976" also
// matches "25061976" and "25_06_1976" in the index.
const OptionalSeparator = "_?"

const separatorPlaceholder = "\x00"

// StripAccents folds accented letters to ASCII and drops any remaining
// non-ASCII rune.
func StripAccents(s string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// IsNumeric reports whether term looks like a number, date or document id:
// digits and wildcards separated by . , : / - _.
func IsNumeric(term string) bool {
	return reNumeric.MatchString(term)
}

// IsWildcardOnly reports whether term holds nothing but wildcard characters.
func IsWildcardOnly(term string) bool {
	return reWildcardOnly.MatchString(term)
}

// HasWildcard reports whether term contains any wildcard character.
func HasWildcard(term string) bool {
	return strings.ContainsAny(term, "?*$")
}

// FormatTerm folds accents and, for non-numeric terms, replaces every
// character that cannot be searched with a space. The result may contain
// several space-separated pieces; see Terms.
func FormatTerm(term string) string {
	term = strings.ReplaceAll(StripAccents(term), "'", `"`)
	if IsNumeric(term) {
		return term
	}
	term = strings.TrimSpace(reNonTerm.ReplaceAllString(term, " "))
	return strings.TrimSpace(reQuoteSpace.ReplaceAllString(term, `"`))
}

// Terms formats term and splits it into searchable pieces, dropping pieces
// made only of wildcards.
func Terms(term string) []string {
	fields := strings.Fields(FormatTerm(term))
	out := fields[:0]
	for _, f := range fields {
		if IsWildcardOnly(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// FormatNumericTerm prepares a numeric term for regexp search: plain numbers
// get thousands grouping and every separator run becomes OptionalSeparator.
//
//	25/06/1976 -> 25_?06_?1976
//	1234567    -> 1_?234_?567
func FormatNumericTerm(term string) string {
	if !IsNumeric(term) {
		return term
	}
	if reThousands.MatchString(term) {
		term = groupThousands(term)
	}
	return reNumericSep.ReplaceAllString(term, OptionalSeparator)
}

// groupThousands applies the Brazilian grouping (1.234.567,89) to the integer
// part of a number that has no '.' yet.
func groupThousands(s string) string {
	if strings.Contains(s, ".") {
		return s
	}
	integer, decimal, hasDecimal := strings.Cut(s, ",")
	grouped := groupDigits(integer)
	if hasDecimal {
		return grouped + "," + decimal
	}
	return grouped
}

func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}
	return groupDigits(s[:len(s)-3]) + "." + s[len(s)-3:]
}

// WildcardRegex compiles a term with wildcards into a regexp fragment:
// a run of n '?' matches 0..n characters and '*' or '$' match any run.
//
//	?ca$s*a    -> .{0,1}ca.*s.*a
//	123.456,?? -> 123_?456_?.{0,2}
func WildcardRegex(term string) string {
	term = reStarRun.ReplaceAllString(term, "*")
	term = FormatNumericTerm(term)
	term = strings.ReplaceAll(term, OptionalSeparator, separatorPlaceholder)
	term = reQuestionRun.ReplaceAllStringFunc(term, func(run string) string {
		return fmt.Sprintf(".{0,%d}", len(run))
	})
	term = strings.ReplaceAll(term, separatorPlaceholder, OptionalSeparator)
	return strings.ReplaceAll(term, "*", ".*")
}

// WildcardPattern normalises a term for a wildcard query: '$' becomes '*'
// and repeated stars collapse.
func WildcardPattern(term string) string {
	return reStarRun.ReplaceAllString(term, "*")
}
