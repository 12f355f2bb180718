package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationParams_Validate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		in      PaginationParams
		page    int
		perPage int
	}{
		{name: "zero values", in: PaginationParams{}, page: 1, perPage: defaultPerPage},
		{name: "negative page", in: PaginationParams{Page: -3, PerPage: 10}, page: 1, perPage: 10},
		{name: "oversized page", in: PaginationParams{Page: 2, PerPage: 1000}, page: 2, perPage: maxPerPage},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.in
			p.Validate()
			assert.Equal(t, tc.page, p.Page)
			assert.Equal(t, tc.perPage, p.PerPage)
		})
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 25)

	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)
	assert.Equal(t, 10, (&PaginationParams{Page: 2, PerPage: 10}).Offset())

	empty := NewPagination(1, 10, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
}

func TestNewPaginatedResult_NeverNilItems(t *testing.T) {
	result := NewPaginatedResult[int](nil, NewPagination(1, 10, 0))
	assert.NotNil(t, result.Items)
}
