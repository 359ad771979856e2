package csvsql

// Direction is a cursor movement direction.
type Direction int

const (
	// DirectionUp moves towards the first row
	DirectionUp Direction = iota
	// DirectionDown moves towards the last row
	DirectionDown
)

// NavigationRequest asks for a page, placing the cursor at InitialRowPosition.
type NavigationRequest struct {
	InitialRowPosition int
	PageIndex          int
}

// HomeRequest requests the first row of the first page.
func HomeRequest() NavigationRequest {
	return NavigationRequest{}
}

// EndRequest requests the last row of the last page of p.
func EndRequest(p PagedResult) NavigationRequest {
	lastRows := p.TotalRows - p.PageUpperLimit*p.PageSize
	return NavigationRequest{
		InitialRowPosition: max(lastRows-1, 0),
		PageIndex:          p.PageUpperLimit,
	}
}

// NextPageRequest requests the first row of the page after p. It reports
// false on the last page.
func NextPageRequest(p PagedResult) (NavigationRequest, bool) {
	if p.CurrentPage >= p.PageUpperLimit {
		return NavigationRequest{}, false
	}
	return NavigationRequest{PageIndex: p.CurrentPage + 1}, true
}

// PrevPageRequest requests the first row of the page before p. It reports
// false on the first page.
func PrevPageRequest(p PagedResult) (NavigationRequest, bool) {
	if p.CurrentPage <= 0 {
		return NavigationRequest{}, false
	}
	return NavigationRequest{PageIndex: p.CurrentPage - 1}, true
}

// ResultPager slices a StatementResult into fixed-size pages.
type ResultPager struct {
	pageSize int
}

// NewResultPager creates a pager. A non-positive size selects DefaultPageSize.
func NewResultPager(pageSize int) *ResultPager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ResultPager{pageSize: pageSize}
}

// PageSize returns the number of rows per page.
func (rp *ResultPager) PageSize() int {
	return rp.pageSize
}

// UpperLimit returns the last valid page index for totalRows rows.
func (rp *ResultPager) UpperLimit(totalRows int) int {
	return max((totalRows+rp.pageSize-1)/rp.pageSize-1, 0)
}

// Page returns the requested page of result. It reports false when the page
// index is outside [0, UpperLimit].
func (rp *ResultPager) Page(result StatementResult, req NavigationRequest) (PagedResult, bool) {
	total := len(result.Rows)
	upper := rp.UpperLimit(total)
	if req.PageIndex < 0 || req.PageIndex > upper {
		return PagedResult{}, false
	}

	lower := min(req.PageIndex*rp.pageSize, total)
	end := min(lower+rp.pageSize, total)

	page := PagedResult{
		Header:             result.Header,
		Rows:               result.Rows[lower:end],
		Elapsed:            result.Elapsed,
		CurrentPage:        req.PageIndex,
		InitialRowPosition: req.InitialRowPosition,
		PageUpperLimit:     upper,
		PageSize:           rp.pageSize,
		TotalRows:          total,
	}
	if total > 0 {
		page.TotalColumns = len(result.Rows[0])
		page.ColumnsKnown = true
	}
	return page, true
}

// ScrollPageOffset reports whether scrolling step rows from cursor in dir
// leaves page p. When it does, the returned offset is the cursor position on
// the adjacent page.
func ScrollPageOffset(p PagedResult, cursor, step int, dir Direction) (int, bool) {
	switch dir {
	case DirectionDown:
		diff := cursor + step - p.PageSize
		if diff > 0 && p.CurrentPage < p.PageUpperLimit {
			return diff, true
		}
	case DirectionUp:
		diff := cursor - step
		if diff < 0 && p.CurrentPage > 0 {
			return p.PageSize + diff, true
		}
	}
	return 0, false
}

// MoveCrossesPage reports whether a single-row move from cursor in dir
// leaves page p: down from the last row of a non-final page, or up from the
// first row of a non-first page.
func MoveCrossesPage(p PagedResult, cursor int, dir Direction) bool {
	switch dir {
	case DirectionDown:
		return p.CurrentPage < p.PageUpperLimit && cursor == len(p.Rows)-1
	case DirectionUp:
		return p.CurrentPage > 0 && cursor == 0
	}
	return false
}

// Viewport tracks a cursor over one page and turns cursor movement into
// either an in-page move or a NavigationRequest.
type Viewport struct {
	page       PagedResult
	cursor     int
	scrollStep int
}

// NewViewport positions a cursor on p at p.InitialRowPosition, clamped to the page.
func NewViewport(p PagedResult, scrollStep int) *Viewport {
	if scrollStep <= 0 {
		scrollStep = DefaultScrollStep
	}
	v := &Viewport{page: p, scrollStep: scrollStep}
	v.cursor = v.clamp(p.InitialRowPosition)
	return v
}

// Page returns the page being viewed.
func (v *Viewport) Page() PagedResult {
	return v.page
}

// Cursor returns the cursor position within the page.
func (v *Viewport) Cursor() int {
	return v.cursor
}

// Info renders the page summary at the cursor.
func (v *Viewport) Info() string {
	return v.page.Info(v.cursor)
}

// Move moves the cursor one row. When the move leaves the page it returns
// the request for the adjacent page and true; the cursor is left unchanged.
func (v *Viewport) Move(dir Direction) (NavigationRequest, bool) {
	if MoveCrossesPage(v.page, v.cursor, dir) {
		if dir == DirectionDown {
			return NavigationRequest{InitialRowPosition: 0, PageIndex: v.page.CurrentPage + 1}, true
		}
		return NavigationRequest{InitialRowPosition: v.page.PageSize - 1, PageIndex: v.page.CurrentPage - 1}, true
	}
	if dir == DirectionDown {
		v.cursor = v.clamp(v.cursor + 1)
	} else {
		v.cursor = v.clamp(v.cursor - 1)
	}
	return NavigationRequest{}, false
}

// Scroll moves the cursor by the scroll step, with the same contract as Move.
func (v *Viewport) Scroll(dir Direction) (NavigationRequest, bool) {
	if offset, ok := ScrollPageOffset(v.page, v.cursor, v.scrollStep, dir); ok {
		next := v.page.CurrentPage + 1
		if dir == DirectionUp {
			next = v.page.CurrentPage - 1
		}
		return NavigationRequest{InitialRowPosition: offset, PageIndex: next}, true
	}
	if dir == DirectionDown {
		v.cursor = v.clamp(v.cursor + v.scrollStep)
	} else {
		v.cursor = v.clamp(v.cursor - v.scrollStep)
	}
	return NavigationRequest{}, false
}

func (v *Viewport) clamp(pos int) int {
	return min(max(pos, 0), max(len(v.page.Rows)-1, 0))
}
