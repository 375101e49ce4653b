package hashing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey64_StableAndDistinct(t *testing.T) {
	t.Parallel()

	a := Key64("Tao Nan/2024/P1B/6")
	assert.Len(t, a, 16)
	assert.Equal(t, a, Key64("Tao Nan/2024/P1B/6"))
	assert.NotEqual(t, a, Key64("Tao Nan/2024/P1B/7"))
}

func TestReader(t *testing.T) {
	t.Parallel()

	sum, n, err := Reader(strings.NewReader("%PDF-1.7 answer key"))
	require.NoError(t, err)
	assert.Equal(t, int64(19), n)
	assert.Len(t, sum, 64)

	again, _, err := Reader(strings.NewReader("%PDF-1.7 answer key"))
	require.NoError(t, err)
	assert.Equal(t, sum, again)
}

//Personal.AI order the ending
