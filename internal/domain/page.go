package domain

import (
	"math"
	"strings"

	apperrors "github.com/booking-system/user-service/pkg/util"
)

const (
	DefaultPageSize  = 10
	MaxPageSize      = 100
	DefaultSortField = "lastName"
)

// SortDirection is either ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortableUserFields maps API field names onto storage columns.
var SortableUserFields = map[string]string{
	"id":          "id",
	"firstName":   "first_name",
	"lastName":    "last_name",
	"email":       "email",
	"phoneNumber": "phone_number",
	"status":      "status",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
}

// PageRequest describes a 0-indexed page of users.
type PageRequest struct {
	Page      int
	Size      int
	SortField string
	SortDir   SortDirection
}

// Normalize fills defaults and validates the request against the sort allow-list.
func (p PageRequest) Normalize() (PageRequest, error) {
	if p.Page < 0 {
		return p, apperrors.NewInvalidArgument("page must not be negative", map[string]any{"page": p.Page})
	}
	if p.Size == 0 {
		p.Size = DefaultPageSize
	}
	if p.Size < 1 || p.Size > MaxPageSize {
		return p, apperrors.NewInvalidArgument("size must be between 1 and 100", map[string]any{"size": p.Size})
	}
	// the offset must fit in an int
	if p.Page > math.MaxInt/p.Size {
		return p, apperrors.NewInvalidArgument("page is out of range", map[string]any{"page": p.Page})
	}
	if p.SortField == "" {
		p.SortField = DefaultSortField
	}
	if _, ok := SortableUserFields[p.SortField]; !ok {
		return p, apperrors.NewInvalidArgument("unsupported sort field", map[string]any{"sort": p.SortField})
	}
	switch SortDirection(strings.ToLower(string(p.SortDir))) {
	case "", SortAsc:
		p.SortDir = SortAsc
	case SortDesc:
		p.SortDir = SortDesc
	default:
		return p, apperrors.NewInvalidArgument("sort direction must be asc or desc", map[string]any{"direction": p.SortDir})
	}
	return p, nil
}

// Offset returns the number of rows skipped before this page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Column returns the storage column for the requested sort field.
func (p PageRequest) Column() string {
	return SortableUserFields[p.SortField]
}

// Page is one slice of a paginated user listing.
type Page struct {
	Items         []User
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
}

// NewPage computes page totals.
func NewPage(items []User, req PageRequest, total int64) Page {
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	if items == nil {
		items = []User{}
	}
	return Page{Items: items, Page: req.Page, Size: req.Size, TotalElements: total, TotalPages: pages}
}

// HasNext reports whether another page follows.
func (p Page) HasNext() bool {
	return p.Page+1 < p.TotalPages
}
