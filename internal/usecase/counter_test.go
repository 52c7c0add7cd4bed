package usecase

import (
	"testing"

	"github.com/naka-gawa/coverage-stats/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCount(t *testing.T) {
	ds := mustParse(t, sampleDataset)

	testCases := []struct {
		element  CountElement
		expected int
	}{
		// 2 system + 2 + 1 + 0 + 1 + 1
		{element: CountRepos, expected: 7},
		{element: CountComponents, expected: 5},
		// 300 + 30 + 90 + 36 + 50
		{element: CountLines, expected: 506},
	}
	for _, tc := range testCases {
		t.Run(string(tc.element), func(t *testing.T) {
			got, err := Count(ds, tc.element)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCount_Errors(t *testing.T) {
	_, err := Count(mustParse(t, `{"a": {"bugs": 1}}`), CountComponents)
	assert.ErrorIs(t, err, domain.ErrMalformedInput)

	_, err = Count(mustParse(t, `{"a": {"isComponent": false, "reposCoverage": {"r": {"lines-covered": 1}}}}`), CountLines)
	assert.ErrorIs(t, err, domain.ErrMalformedInput)

	// Repository counting only looks at map sizes.
	n, err := Count(mustParse(t, `{"a": {"isComponent": false, "reposCoverage": {"r": {"lines-covered": 1}}}}`), CountRepos)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = Count(domain.NewDataset(), CountElement("bytes"))
	assert.ErrorIs(t, err, domain.ErrInvalidSelector)
}

func TestParseCountElement(t *testing.T) {
	el, err := ParseCountElement("lines")
	require.NoError(t, err)
	assert.Equal(t, CountLines, el)
	assert.Equal(t, "Number of valid lines", el.Label())
	assert.Equal(t, "Number of repositories", CountRepos.Label())

	_, err = ParseCountElement("all")
	assert.ErrorIs(t, err, domain.ErrInvalidSelector)
}
