package service

// Pagination describes one page of a larger result set.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

const (
	defaultPage  = 1
	defaultLimit = 10
)

// normalizePage falls back to the defaults for absent or non-positive values.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}

func newPagination(page, limit, total int) Pagination {
	return Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: (total + limit - 1) / limit,
	}
}
