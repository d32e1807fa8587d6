package shared

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationBounds(t *testing.T) {
	tests := []struct {
		name               string
		page, per, total   int
		wantStart, wantEnd int
		wantPages          int
	}{
		{name: "first page", page: 1, per: 2, total: 5, wantStart: 0, wantEnd: 2, wantPages: 3},
		{name: "last partial page", page: 3, per: 2, total: 5, wantStart: 4, wantEnd: 5, wantPages: 3},
		{name: "past the end", page: 7, per: 2, total: 5, wantStart: 5, wantEnd: 5, wantPages: 3},
		{name: "defaults", page: 0, per: 0, total: 5, wantStart: 0, wantEnd: 5, wantPages: 1},
		{name: "empty", page: 1, per: 10, total: 0, wantStart: 0, wantEnd: 0, wantPages: 0},
		{name: "huge page", page: math.MaxInt, per: 20, total: 3, wantStart: 3, wantEnd: 3, wantPages: 1},
		{name: "huge page and size", page: math.MaxInt, per: MaxPerPage, total: 3, wantStart: 3, wantEnd: 3, wantPages: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPagination(tc.page, tc.per, tc.total)
			start, end := p.Bounds()
			assert.Equal(t, tc.wantStart, start)
			assert.Equal(t, tc.wantEnd, end)
			assert.Equal(t, tc.wantPages, p.TotalPages)
		})
	}
}

func TestPaginationFromQuery(t *testing.T) {
	p := PaginationFromQuery(url.Values{"page": {"2"}, "per_page": {"5000"}}, 10)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, MaxPerPage, p.PerPage)

	p = PaginationFromQuery(url.Values{"page": {"x"}}, 10)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
}

func TestPaginationFromQueryHugePage(t *testing.T) {
	p := PaginationFromQuery(url.Values{"page": {"9223372036854775807"}}, 3)
	start, end := p.Bounds()
	assert.Equal(t, 3, start)
	assert.Equal(t, 3, end)
}
