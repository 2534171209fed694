package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	DateLayout = "2006-01-02"
)

// Pagination reads page and page_size from the query string. Missing or
// malformed values fall back to the first page of the default size.
func Pagination(c *gin.Context) (page, pageSize int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if err != nil || pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp. An empty value
// is a nil date.
func ParseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(DateLayout, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, model.NewInvalidInput(field, "expected YYYY-MM-DD")
	}
	return &t, nil
}

func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// Money renders an amount the way it is stored, with two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
