package models

// MaxPageLimit caps page sizes on every list endpoint.
const MaxPageLimit = 100

// Pagination is the page metadata attached to list responses.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

// PageRequest is a validated page/limit pair.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest clamps page to >= 1 and limit to [1, MaxPageLimit].
func NewPageRequest(page, limit int) PageRequest {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return PageRequest{Page: page, Limit: limit}
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// NewPagination derives page metadata from a total row count.
func NewPagination(req PageRequest, total int64) Pagination {
	pages := 0
	if total > 0 {
		pages = int((total + int64(req.Limit) - 1) / int64(req.Limit))
	}
	return Pagination{
		CurrentPage: req.Page,
		TotalPages:  pages,
		TotalItems:  total,
		HasNext:     req.Page < pages,
		HasPrev:     req.Page > 1,
	}
}

// Page is one page of results.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}
