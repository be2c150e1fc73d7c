package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		token string
		want  Operator
		ok    bool
	}{
		{"e", AND, true},
		{"AND", AND, true},
		{"Ou", OR, true},
		{"or", OR, true},
		{"NÃO", NOT, true},
		{"nao", NOT, true},
		{"not", NOT, true},
		{"adj", Operator{Kind: Adj, N: 1}, true},
		{"Adj5", Operator{Kind: Adj, N: 5}, true},
		{"adjc3", Operator{Kind: Adj, N: 3}, true},
		{"PROX10", Operator{Kind: Prox, N: 10}, true},
		{"com", Operator{Kind: Prox, N: ComDistance}, true},
		{"ADJ0", Operator{Kind: Adj, N: 0}, true},
		{"dano", Operator{}, false},
		{"adjetivo", Operator{}, false},
		{"e,", Operator{}, false},
		{`"e"`, Operator{}, false},
		{"", Operator{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := Parse(tt.token)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, IsOperator(tt.token))
		})
	}
}

func TestCanonical(t *testing.T) {
	tests := map[string]string{
		"adj":   "ADJ1",
		"Adj2":  "ADJ2",
		"prox":  "PROX1",
		"com":   "PROX30",
		"and":   "E",
		"e":     "E",
		"or":    "OU",
		"não":   "NAO",
		"NOT":   "NAO",
		"moral": "moral",
	}
	for in, want := range tests {
		assert.Equal(t, want, Canonical(in), in)
	}
}

func TestOperatorPredicates(t *testing.T) {
	adj := Operator{Kind: Adj, N: 2}
	prox := Operator{Kind: Prox, N: 10}

	assert.True(t, adj.IsSlop())
	assert.True(t, prox.IsGrouping())
	assert.True(t, OR.IsGrouping())
	assert.False(t, AND.IsGrouping())
	assert.False(t, NOT.IsGrouping())
	assert.False(t, adj.CanBorderGroup())
	assert.True(t, NOT.CanBorderGroup())
	assert.Equal(t, 1, adj.Slop())
	assert.Equal(t, 0, Operator{Kind: Adj, N: 0}.Slop())
}
