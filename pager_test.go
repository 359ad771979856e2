package csvsql

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultWithRows(n int) StatementResult {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{strconv.Itoa(i), "v"}
	}
	return StatementResult{Header: []string{"n", "v"}, Rows: rows, Elapsed: 42 * time.Millisecond}
}

func TestResultPager_Page(t *testing.T) {
	t.Parallel()

	pager := NewResultPager(DefaultPageSize)
	result := resultWithRows(250)

	tests := []struct {
		name      string
		pageIndex int
		wantOK    bool
		wantRows  int
		wantFirst string
	}{
		{name: "first page", pageIndex: 0, wantOK: true, wantRows: 100, wantFirst: "0"},
		{name: "middle page", pageIndex: 1, wantOK: true, wantRows: 100, wantFirst: "100"},
		{name: "last partial page", pageIndex: 2, wantOK: true, wantRows: 50, wantFirst: "200"},
		{name: "past upper limit", pageIndex: 3, wantOK: false},
		{name: "negative", pageIndex: -1, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			page, ok := pager.Page(result, NavigationRequest{PageIndex: tt.pageIndex, InitialRowPosition: 7})
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Len(t, page.Rows, tt.wantRows)
			assert.Equal(t, tt.wantFirst, page.Rows[0][0])
			assert.Equal(t, 2, page.PageUpperLimit)
			assert.Equal(t, tt.pageIndex, page.CurrentPage)
			assert.Equal(t, 7, page.InitialRowPosition)
			assert.Equal(t, 250, page.TotalRows)
			assert.Equal(t, 2, page.TotalColumns)
			assert.True(t, page.ColumnsKnown)
			assert.LessOrEqual(t, page.CurrentPage, page.PageUpperLimit)
			assert.LessOrEqual(t, len(page.Rows), page.PageSize)
		})
	}
}

func TestResultPager_UpperLimit(t *testing.T) {
	t.Parallel()

	pager := NewResultPager(100)
	for total, want := range map[int]int{0: 0, 1: 0, 99: 0, 100: 0, 101: 1, 200: 1, 250: 2} {
		assert.Equal(t, want, pager.UpperLimit(total), "total %d", total)
	}
}

func TestResultPager_EmptyResult(t *testing.T) {
	t.Parallel()

	page, ok := NewResultPager(0).Page(StatementResult{Header: []string{"a"}}, HomeRequest())
	require.True(t, ok)
	assert.Empty(t, page.Rows)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.False(t, page.ColumnsKnown)
	assert.Contains(t, page.Info(0), "Columns:N/A")
}

func TestScrollPageOffset(t *testing.T) {
	t.Parallel()

	middle := PagedResult{CurrentPage: 1, PageUpperLimit: 2, PageSize: 100}
	first := PagedResult{CurrentPage: 0, PageUpperLimit: 2, PageSize: 100}
	last := PagedResult{CurrentPage: 2, PageUpperLimit: 2, PageSize: 100}

	tests := []struct {
		name       string
		page       PagedResult
		cursor     int
		dir        Direction
		wantOffset int
		wantOK     bool
	}{
		{name: "down within page", page: middle, cursor: 50, dir: DirectionDown},
		{name: "down to the boundary stays", page: middle, cursor: 92, dir: DirectionDown},
		{name: "down across boundary", page: middle, cursor: 95, dir: DirectionDown, wantOffset: 3, wantOK: true},
		{name: "down on last page", page: last, cursor: 95, dir: DirectionDown},
		{name: "up within page", page: middle, cursor: 20, dir: DirectionUp},
		{name: "up to the top stays", page: middle, cursor: 8, dir: DirectionUp},
		{name: "up across boundary", page: middle, cursor: 3, dir: DirectionUp, wantOffset: 95, wantOK: true},
		{name: "up on first page", page: first, cursor: 3, dir: DirectionUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			offset, ok := ScrollPageOffset(tt.page, tt.cursor, DefaultScrollStep, tt.dir)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestMoveCrossesPage(t *testing.T) {
	t.Parallel()

	pager := NewResultPager(100)
	result := resultWithRows(250)
	first, _ := pager.Page(result, NavigationRequest{PageIndex: 0})
	last, _ := pager.Page(result, NavigationRequest{PageIndex: 2})

	assert.True(t, MoveCrossesPage(first, 99, DirectionDown))
	assert.False(t, MoveCrossesPage(first, 98, DirectionDown))
	assert.False(t, MoveCrossesPage(first, 0, DirectionUp))
	assert.True(t, MoveCrossesPage(last, 0, DirectionUp))
	assert.False(t, MoveCrossesPage(last, 49, DirectionDown))
	assert.False(t, MoveCrossesPage(last, 1, DirectionUp))
}

func TestNavigationRequests(t *testing.T) {
	t.Parallel()

	pager := NewResultPager(100)
	result := resultWithRows(250)
	middle, _ := pager.Page(result, NavigationRequest{PageIndex: 1})

	assert.Equal(t, NavigationRequest{}, HomeRequest())
	assert.Equal(t, NavigationRequest{InitialRowPosition: 49, PageIndex: 2}, EndRequest(middle))

	next, ok := NextPageRequest(middle)
	assert.True(t, ok)
	assert.Equal(t, NavigationRequest{PageIndex: 2}, next)

	prev, ok := PrevPageRequest(middle)
	assert.True(t, ok)
	assert.Equal(t, NavigationRequest{PageIndex: 0}, prev)

	last, _ := pager.Page(result, next)
	_, ok = NextPageRequest(last)
	assert.False(t, ok)

	exact, _ := pager.Page(resultWithRows(200), HomeRequest())
	assert.Equal(t, NavigationRequest{InitialRowPosition: 99, PageIndex: 1}, EndRequest(exact))
}

func TestViewport(t *testing.T) {
	t.Parallel()

	pager := NewResultPager(100)
	result := resultWithRows(250)

	t.Run("move within and across pages", func(t *testing.T) {
		t.Parallel()

		page, _ := pager.Page(result, NavigationRequest{PageIndex: 0, InitialRowPosition: 98})
		v := NewViewport(page, DefaultScrollStep)
		assert.Equal(t, 98, v.Cursor())

		_, cross := v.Move(DirectionDown)
		assert.False(t, cross)
		assert.Equal(t, 99, v.Cursor())

		req, cross := v.Move(DirectionDown)
		assert.True(t, cross)
		assert.Equal(t, NavigationRequest{InitialRowPosition: 0, PageIndex: 1}, req)
		assert.Equal(t, 99, v.Cursor())

		_, cross = v.Move(DirectionUp)
		assert.False(t, cross)
		assert.Equal(t, 98, v.Cursor())
	})

	t.Run("move up from a later page", func(t *testing.T) {
		t.Parallel()

		page, _ := pager.Page(result, NavigationRequest{PageIndex: 2})
		req, cross := NewViewport(page, DefaultScrollStep).Move(DirectionUp)
		assert.True(t, cross)
		assert.Equal(t, NavigationRequest{InitialRowPosition: 99, PageIndex: 1}, req)
	})

	t.Run("scroll", func(t *testing.T) {
		t.Parallel()

		page, _ := pager.Page(result, NavigationRequest{PageIndex: 1, InitialRowPosition: 90})
		v := NewViewport(page, DefaultScrollStep)

		_, cross := v.Scroll(DirectionDown)
		assert.False(t, cross)
		assert.Equal(t, 98, v.Cursor())

		req, cross := v.Scroll(DirectionDown)
		assert.True(t, cross)
		assert.Equal(t, NavigationRequest{InitialRowPosition: 6, PageIndex: 2}, req)
	})

	t.Run("clamped on the last page", func(t *testing.T) {
		t.Parallel()

		page, _ := pager.Page(result, NavigationRequest{PageIndex: 2, InitialRowPosition: 80})
		v := NewViewport(page, DefaultScrollStep)
		assert.Equal(t, 49, v.Cursor())

		_, cross := v.Scroll(DirectionDown)
		assert.False(t, cross)
		assert.Equal(t, 49, v.Cursor())
	})
}

func TestPagedResult_Info(t *testing.T) {
	t.Parallel()

	page, ok := NewResultPager(100).Page(resultWithRows(250), NavigationRequest{PageIndex: 1})
	require.True(t, ok)

	assert.Equal(t, "Row:105/250 Page:2/3 Page Size:100 Columns:2 Elapsed:42msecs", page.Info(4))
	assert.Equal(t, "001/250", paddedNumber(1, 250))
}
