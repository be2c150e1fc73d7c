package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripAccents(t *testing.T) {
	assert.Equal(t, "estetico", StripAccents("estético"))
	assert.Equal(t, "CONTEM", StripAccents("CONTÉM"))
	assert.Equal(t, "acao", StripAccents("ação"))
	assert.Equal(t, "nao", StripAccents("não"))
}

func TestFormatTerm(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"estético", "estetico"},
		{"MoRal", "MoRal"},
		{"termo1,", "termo1"},
		{"termo2:texto3", "termo2 texto3"},
		{"[termo4]", "termo4"},
		{"a|b:c::", "a b c"},
		{"123.456.789,123", "123.456.789,123"},
		{"25/06/1976", "25/06/1976"},
		{"a.b", "a b"},
		{"que?ra", "que?ra"},
		{"mora*", "mora*"},
		{`" ano "`, `"ano"`},
		{"'2020'", `"2020"`},
		{"a123456,??", "a123456 ??"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTerm(tt.in))
		})
	}
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"a1", "2b", "c3"}, Terms("a1|2b:c3::"))
	assert.Equal(t, []string{"a123456"}, Terms("a123456,??"))
	assert.Empty(t, Terms("??"))
	assert.Empty(t, Terms("-"))
}

func TestFormatNumericTerm(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"25/06/1976", "25_?06_?1976"},
		{"123456", "123_?456"},
		{"1234567", "1_?234_?567"},
		{"123.456", "123_?456"},
		{"2020", "2_?020"},
		{"123", "123"},
		{"123456,78", "123_?456_?78"},
		{"dano", "dano"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumericTerm(tt.in))
		})
	}
}

func TestWildcardRegex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"casa*", "casa.*"},
		{"casa", "casa"},
		{"ca$sa", "ca.*sa"},
		{"?ca$sa", ".{0,1}ca.*sa"},
		{"?ca$s*a", ".{0,1}ca.*s.*a"},
		{"*$ca???sa??", ".*ca.{0,3}sa.{0,2}"},
		{"casa?", "casa.{0,1}"},
		{"ca??sa?", "ca.{0,2}sa.{0,1}"},
		{"?ca??sa?", ".{0,1}ca.{0,2}sa.{0,1}"},
		{"123.456,??", "123_?456_?.{0,2}"},
		{"123.456", "123_?456"},
		{"123456", "123_?456"},
		{"1234567", "1_?234_?567"},
		{"123456,??", "123_?456_?.{0,2}"},
		{"a123456,??", "a123456 .{0,2}"},
		{"123:456.789,123", "123_?456_?789_?123"},
		{"25/06/1976", "25_?06_?1976"},
		{"25:06:1976", "25_?06_?1976"},
		{"123,456.789-00", "123_?456_?789_?00"},
		{"123-456-789-00", "123_?456_?789_?00"},
		{"123::456.789-00", "123_?456_?789_?00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, WildcardRegex(FormatTerm(tt.in)))
		})
	}
}

func TestWildcardRegexIsStable(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, "1_?234_?567", WildcardRegex("1234567"))
	}
}

func TestWildcardPattern(t *testing.T) {
	assert.Equal(t, "ca*sa*", WildcardPattern("ca$sa**"))
}
