package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/patreg/patreg/internal/apperr"
)

const (
	DefaultPage = 1
	DefaultSize = 20
	MaxSize     = 100
)

// Params holds one page worth of list parameters. Pages are 1-based.
type Params struct {
	Page int
	Size int
}

// FromContext extracts page and size from the request query. Absent
// parameters take defaults; present-but-invalid parameters are rejected
// rather than clamped, so a client asking for page=0 or size=1000 learns
// about it instead of silently getting something else.
func FromContext(c echo.Context) (Params, error) {
	p := Params{Page: DefaultPage, Size: DefaultSize}

	if raw := c.QueryParam("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return Params{}, apperr.New(apperr.InvalidPayload, "page must be a positive integer")
		}
		p.Page = page
	}
	if raw := c.QueryParam("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > MaxSize {
			return Params{}, apperr.Newf(apperr.InvalidPayload, "size must be between 1 and %d", MaxSize)
		}
		p.Size = size
	}
	return p, nil
}

// Offset returns the row offset for the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Size
}

// Response wraps a paginated API response.
type Response struct {
	Data  interface{} `json:"data"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
	Pages int         `json:"pages"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	pages := total / p.Size
	if total%p.Size != 0 {
		pages++
	}
	return &Response{Data: data, Total: total, Page: p.Page, Size: p.Size, Pages: pages}
}
