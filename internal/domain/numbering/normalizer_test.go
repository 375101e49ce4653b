package numbering_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/QuestionBank/internal/domain/numbering"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

func newNormalizer(t *testing.T) *numbering.Normalizer {
	t.Helper()
	n, err := numbering.NewNormalizer([]numbering.Rule{
		{Section: "P1B", Offset: 15},
		{School: "Rosyth", Section: "P1B", Offset: 0},
		{School: "Nan Hua", Section: "P2", Mapping: map[int]int{31: 1, 32: 2}, Offset: 30},
	})
	require.NoError(t, err)
	return n
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	n := newNormalizer(t)

	tests := []struct {
		name      string
		school    string
		section   string
		raw       string
		canonical int
	}{
		{"default offset applies", "Tao Nan", "P1B", "21", 6},
		{"Q prefix and lower-case section", "Tao Nan", "p1b", "Q21", 6},
		{"school rule wins over default", "Rosyth", "P1B", "21", 21},
		{"school name whitespace is collapsed", "  Rosyth ", "P1B", "7", 7},
		{"no rule means identity", "Tao Nan", "P2", "(14)", 14},
		{"mapping precedes offset", "Nan Hua", "P2", "31", 1},
		{"offset used for unmapped numbers", "Nan Hua", "P2", "35.", 5},
		{"No. prefix", "Tao Nan", "P1A", "No. 3", 3},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := n.Normalize(tt.school, tt.section, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.canonical, got.Canonical)
			assert.Equal(t, tt.raw, got.Original)
			assert.Equal(t, numbering.CanonicalSection(tt.section), got.Section)
		})
	}
}

func TestNormalize_Invalid(t *testing.T) {
	t.Parallel()
	n := newNormalizer(t)

	tests := []struct {
		name    string
		section string
		raw     string
	}{
		{"empty", "P1A", ""},
		{"blank", "P1A", "   "},
		{"zero", "P1A", "0"},
		{"negative", "P1A", "-3"},
		{"text", "P1A", "twelve"},
		{"falls below offset", "P1B", "15"},
		{"missing section", "", "4"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := n.Normalize("Tao Nan", tt.section, tt.raw)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeInvalidQuestionNumber), err)
		})
	}
}

func TestNewNormalizer_RejectsBadRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rules []numbering.Rule
		code  errors.ErrorCode
	}{
		{
			name:  "non-injective mapping",
			rules: []numbering.Rule{{Section: "P2", Mapping: map[int]int{16: 1, 17: 1}}},
			code:  errors.CodeAmbiguousNumbering,
		},
		{
			name:  "negative offset",
			rules: []numbering.Rule{{Section: "P2", Offset: -1}},
			code:  errors.CodeInvalidNumberingRule,
		},
		{
			name:  "missing section",
			rules: []numbering.Rule{{School: "X", Offset: 3}},
			code:  errors.CodeInvalidNumberingRule,
		},
		{
			name:  "zero in mapping",
			rules: []numbering.Rule{{Section: "P2", Mapping: map[int]int{0: 1}}},
			code:  errors.CodeInvalidNumberingRule,
		},
		{
			name:  "mapping target reachable by offset",
			rules: []numbering.Rule{{Section: "P1B", Offset: 15, Mapping: map[int]int{30: 6}}},
			code:  errors.CodeAmbiguousNumbering,
		},
		{
			name:  "mapping target reachable without offset",
			rules: []numbering.Rule{{Section: "P2", Mapping: map[int]int{18: 3}}},
			code:  errors.CodeAmbiguousNumbering,
		},
		{
			name:  "duplicate rule",
			rules: []numbering.Rule{{Section: "p1b", Offset: 15}, {Section: "P1B", Offset: 10}},
			code:  errors.CodeInvalidNumberingRule,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := numbering.NewNormalizer(tt.rules)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestNormalizeBatch_ReportsCollisions(t *testing.T) {
	t.Parallel()
	n := newNormalizer(t)

	numbers, failed := n.NormalizeBatch("Tao Nan", "P1B", []string{"16", "017", "Q17", "18", "0"})

	require.Len(t, numbers, 2)
	assert.Equal(t, 1, numbers[0].Canonical)
	assert.Equal(t, "16", numbers[0].Original)
	assert.Equal(t, 3, numbers[1].Canonical)

	require.Len(t, failed, 3)
	assert.Equal(t, 1, failed[0].Index)
	assert.True(t, errors.IsCode(failed[0], errors.CodeAmbiguousNumbering))
	assert.Equal(t, 2, failed[1].Index)
	assert.True(t, errors.IsCode(failed[1], errors.CodeAmbiguousNumbering))
	assert.Equal(t, 4, failed[2].Index)
	assert.True(t, errors.IsCode(failed[2], errors.CodeInvalidQuestionNumber))
}

func TestNormalizeBatch_SwappedMapping(t *testing.T) {
	t.Parallel()
	n, err := numbering.NewNormalizer([]numbering.Rule{
		{Section: "P2", Mapping: map[int]int{3: 4, 4: 3}},
	})
	require.NoError(t, err)

	numbers, failed := n.NormalizeBatch("Tao Nan", "P2", []string{"3", "4", "5"})
	require.Empty(t, failed)
	require.Len(t, numbers, 3)
	assert.Equal(t, 4, numbers[0].Canonical)
	assert.Equal(t, 3, numbers[1].Canonical)
	assert.Equal(t, 5, numbers[2].Canonical)
}

func TestRuleLookup(t *testing.T) {
	t.Parallel()
	n := newNormalizer(t)

	assert.Equal(t, 15, n.Rule("Anyone", "P1B").Offset)
	assert.Equal(t, 0, n.Rule("Rosyth", "P1B").Offset)
	assert.Equal(t, 0, n.Rule("Anyone", "P2").Offset)
	assert.Len(t, n.Rules(), 3)
	assert.Equal(t, "P1B", n.Rules()[0].Section)
}

func TestNormalize_Concurrent(t *testing.T) {
	t.Parallel()
	n := newNormalizer(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := n.Normalize("Tao Nan", "P1B", "Q30")
			assert.NoError(t, err)
			assert.Equal(t, 15, got.Canonical)
		}()
	}
	wg.Wait()
}

//Personal.AI order the ending
