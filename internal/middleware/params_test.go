package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagination(t *testing.T) {
	cases := []struct {
		query      string
		page, size int
	}{
		{"", 1, 20},
		{"page=3&page_size=5", 3, 5},
		{"page=-1&page_size=abc", 1, 20},
		{"page_size=1000", 1, 100},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)

		page, size := Pagination(c)
		assert.Equal(t, tc.page, page, tc.query)
		assert.Equal(t, tc.size, size, tc.query)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("arrival_date", "2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", FormatDate(d))

	d, err = ParseDate("arrival_date", "")
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.Equal(t, "", FormatDate(d))

	_, err = ParseDate("arrival_date", "29/02/2024")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "20.25", Money(decimal.RequireFromString("20.25")))
	assert.Equal(t, "7.00", Money(decimal.NewFromInt(7)))
	assert.Equal(t, "0.00", Money(decimal.Decimal{}))
}
