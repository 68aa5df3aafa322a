package orders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderNumberRoundTrip(t *testing.T) {
	gen, err := NewOrderNumberGenerator("test-salt")
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, id := range []int64{1, 2, 42, 1_000_000} {
		n, err := gen.Generate(id)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(n, "ORD-"), n)
		assert.GreaterOrEqual(t, len(n), len("ORD-")+8)
		assert.False(t, seen[n], "duplicate order number %s", n)
		seen[n] = true

		back, err := gen.Decode(n)
		require.NoError(t, err)
		assert.Equal(t, id, back)
	}
}

func TestOrderNumberDependsOnSalt(t *testing.T) {
	a, err := NewOrderNumberGenerator("one")
	require.NoError(t, err)
	b, err := NewOrderNumberGenerator("two")
	require.NoError(t, err)

	na, _ := a.Generate(7)
	nb, _ := b.Generate(7)
	assert.NotEqual(t, na, nb)
}

func TestOrderNumberDecodeRejectsGarbage(t *testing.T) {
	gen, err := NewOrderNumberGenerator("test-salt")
	require.NoError(t, err)

	_, err = gen.Decode("KHEL-1234")
	assert.Error(t, err)
}
