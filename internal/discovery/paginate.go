package discovery

// Paginate returns items[(page-1)*limit : page*limit], clamped to the slice.
// Pages past the end yield an empty slice. page < 1 is treated as 1 and a
// non-positive limit yields nothing.
func Paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return []T{}
	}
	if page < 1 {
		page = 1
	}
	if !pageInRange(len(items), page, limit) {
		return []T{}
	}
	offset := (page - 1) * limit
	end := len(items)
	if limit < end-offset {
		end = offset + limit
	}
	return items[offset:end]
}

// HasMore reports whether n items continue past the given page.
func HasMore(n, page, limit int) bool {
	if limit <= 0 || page < 1 {
		return false
	}
	return pageInRange(n, page+1, limit)
}

// pageInRange reports whether page holds at least one of n items. It divides
// rather than multiplies so huge page numbers cannot overflow.
func pageInRange(n, page, limit int) bool {
	if n <= 0 || page < 1 {
		return false
	}
	return page-1 <= (n-1)/limit
}
