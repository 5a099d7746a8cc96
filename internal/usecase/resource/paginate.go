package resource

// Page is the paginated projection of a list.
type Page[T any] struct {
	Total       int  `json:"total"`
	Start       int  `json:"start"`
	End         int  `json:"end"`
	TotalPages  int  `json:"totalPages"`
	CurrentPage int  `json:"currentPage"`
	Data        []*T `json:"data"`
}

// Paginate slices items in memory. page is one-based; page and size must be positive.
// Pages past the end yield an empty Data slice.
func Paginate[T any](items []*T, page, size int) Page[T] {
	total := len(items)
	pages := total / size
	if total%size != 0 {
		pages++
	}

	start := total
	if page-1 < pages {
		start = (page - 1) * size
	}
	end := start + min(size, total-start)
	data := items[start:end]
	if data == nil {
		data = []*T{}
	}
	return Page[T]{
		Total:       total,
		Start:       start + 1,
		End:         end,
		TotalPages:  pages,
		CurrentPage: page,
		Data:        data,
	}
}
