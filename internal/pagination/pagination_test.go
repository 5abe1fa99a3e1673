package pagination

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePageSizeAllowList(t *testing.T) {
	for _, size := range AllowedPageSizes {
		assert.NoError(t, Params{Page: 1, PageSize: size}.Validate())
	}

	err := Params{Page: 1, PageSize: 15}.Validate()
	require.Error(t, err)
	var invalid *InvalidPageSizeError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 15, invalid.PageSize)

	assert.Error(t, Params{Page: 0, PageSize: 10}.Validate())
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(1, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 3, TotalPages(25, 10))
	assert.Equal(t, 1, TotalPages(25, 100))
}

func TestWindowAgainst25Rows(t *testing.T) {
	// page 3 of 25 rows at size 10 holds rows 21..25.
	offset, limit, err := Window(Params{Page: 3, PageSize: 10}, 25)
	require.NoError(t, err)
	assert.Equal(t, 20, offset)
	assert.Equal(t, 10, limit)

	// page 4 is past the end: not-found, not an empty page.
	_, _, err = Window(Params{Page: 4, PageSize: 10}, 25)
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestWindowZeroTotalSkipsPastEndCheck(t *testing.T) {
	// total_pages == 0 disables the past-the-end check; the empty page is
	// reported by New instead.
	offset, _, err := Window(Params{Page: 1, PageSize: 10}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, offset)
}

func TestNewReportsEmptyPageAsNotFound(t *testing.T) {
	page, err := New([]string{"a", "b"}, 25, Params{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 2)

	// Preserved conflation: an empty slice means not-found even when the
	// params were valid.
	_, err = New([]string{}, 0, Params{Page: 1, PageSize: 10})
	assert.True(t, errors.Is(err, ErrPageNotFound))
}
