package fields

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapAllows(t *testing.T) {
	m := Map{"texto": ".raw", "DATA": ""}

	assert.True(t, m.Allows("DATA", "texto"))
	assert.True(t, m.Allows("conteudo", "conteudo"), "default field is always allowed")
	assert.False(t, m.Allows("titulo", "texto"))
	assert.True(t, Map{}.Allows("titulo", "texto"))
	assert.True(t, Map(nil).Allows("titulo", "texto"))
}

func TestMapRawSuffix(t *testing.T) {
	m := Map{"texto": ".exato", "CAMPO": ".raw", "DATA": ""}

	assert.Equal(t, ".raw", m.RawSuffix("texto", "texto", ".raw"))
	assert.Equal(t, ".exato", m.RawSuffix("texto", "texto", ""))
	assert.Equal(t, ".raw", m.RawSuffix("CAMPO", "texto", ".raw"))
	assert.Equal(t, "", m.RawSuffix("DATA", "texto", ".raw"))
	assert.Equal(t, "", m.RawSuffix("titulo", "texto", ".raw"))
}

func TestMapNamesCloneMerge(t *testing.T) {
	m := Map{"b": "", "a": ".raw"}
	assert.Equal(t, []string{"a", "b"}, m.Names())

	c := m.Clone()
	c["c"] = ""
	assert.Len(t, m, 2)

	merged := m.Merge(Map{"b": ".raw", "d": ""})
	assert.Equal(t, Map{"a": ".raw", "b": ".raw", "d": ""}, merged)
	assert.Equal(t, "", m["b"])
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("dial tcp: connection refused"), true},
		{&pq.Error{Code: "08006"}, true},
		{&pq.Error{Code: "57P01"}, true},
		{fmt.Errorf("querying: %w", &pq.Error{Code: "42P01"}), false},
		{&pq.Error{Code: "23505"}, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.err), func(t *testing.T) {
			assert.Equal(t, tc.want, retryable(tc.err))
		})
	}
}
