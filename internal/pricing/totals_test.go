package pricing

import (
	"errors"
	"testing"

	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotals_Scenario(t *testing.T) {
	items := []LineItem{
		{ItemID: "rose", Quantity: 2, UnitPrice: d("10.00"), ItemDiscount: d("0")},
		{ItemID: "tulip", Quantity: 1, UnitPrice: d("5.00"), ItemDiscount: d("0.5")},
	}

	totals, err := ComputeTotals(items, d("10"), d("20.00"))
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(d("22.50")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.TotalAfterDiscount.Equal(d("20.25")), "total %s", totals.TotalAfterDiscount)
	assert.True(t, totals.Remaining.Equal(d("0.25")), "remaining %s", totals.Remaining)
}

func TestComputeTotals_OrderIndependent(t *testing.T) {
	items := []LineItem{
		{ItemID: "a", Quantity: 3, UnitPrice: d("0.10"), ItemDiscount: d("0.15")},
		{ItemID: "b", Quantity: 7, UnitPrice: d("1.99"), ItemDiscount: d("0.05")},
		{ItemID: "c", Quantity: 1, UnitPrice: d("0.01"), ItemDiscount: d("0.333")},
		{ItemID: "d", Quantity: 11, UnitPrice: d("2.70"), ItemDiscount: d("0")},
	}
	reversed := make([]LineItem, len(items))
	for i, item := range items {
		reversed[len(items)-1-i] = item
	}

	forward, err := ComputeTotals(items, d("12.5"), d("0"))
	require.NoError(t, err)
	backward, err := ComputeTotals(reversed, d("12.5"), d("0"))
	require.NoError(t, err)

	assert.True(t, forward.Subtotal.Equal(backward.Subtotal))
	assert.True(t, forward.TotalAfterDiscount.Equal(backward.TotalAfterDiscount))

	// 3*0.10*0.85 + 7*1.99*0.95 + 1*0.01*0.667 + 11*2.70
	assert.True(t, forward.Subtotal.Equal(d("43.19517")), "subtotal %s", forward.Subtotal)
}

func TestComputeTotals_RemainingNeverNegative(t *testing.T) {
	items := []LineItem{{ItemID: "a", Quantity: 1, UnitPrice: d("30")}}

	for _, deposit := range []string{"30", "30.01", "1000"} {
		totals, err := ComputeTotals(items, d("0"), d(deposit))
		require.NoError(t, err)
		assert.True(t, totals.Remaining.IsZero(), "deposit %s left %s", deposit, totals.Remaining)
	}
}

func TestComputeTotals_InvalidInput(t *testing.T) {
	valid := LineItem{ItemID: "a", Quantity: 1, UnitPrice: d("1")}

	cases := []struct {
		name     string
		items    []LineItem
		discount string
		deposit  string
		field    string
	}{
		{"zero quantity", []LineItem{{ItemID: "a", Quantity: 0, UnitPrice: d("1")}}, "0", "0", "items[0].quantity"},
		{"negative quantity", []LineItem{valid, {ItemID: "b", Quantity: -2, UnitPrice: d("1")}}, "0", "0", "items[1].quantity"},
		{"negative price", []LineItem{{ItemID: "a", Quantity: 1, UnitPrice: d("-1")}}, "0", "0", "items[0].unit_price"},
		{"discount of one", []LineItem{{ItemID: "a", Quantity: 1, UnitPrice: d("1"), ItemDiscount: d("1")}}, "0", "0", "items[0].item_discount"},
		{"negative item discount", []LineItem{{ItemID: "a", Quantity: 1, UnitPrice: d("1"), ItemDiscount: d("-0.1")}}, "0", "0", "items[0].item_discount"},
		{"missing item id", []LineItem{{Quantity: 1, UnitPrice: d("1")}}, "0", "0", "items[0].item_id"},
		{"order discount above 100", []LineItem{valid}, "100.5", "0", "order_discount"},
		{"negative order discount", []LineItem{valid}, "-1", "0", "order_discount"},
		{"negative deposit", []LineItem{valid}, "0", "-0.01", "deposit"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeTotals(tc.items, d(tc.discount), d(tc.deposit))
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrInvalidInput))

			var invalid *model.InvalidInputError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tc.field, invalid.Field)
		})
	}
}

func TestComputeTotals_FullDiscountBounds(t *testing.T) {
	items := []LineItem{{ItemID: "a", Quantity: 4, UnitPrice: d("2.50"), ItemDiscount: d("0.99")}}

	totals, err := ComputeTotals(items, d("100"), d("0"))
	require.NoError(t, err)
	assert.True(t, totals.TotalAfterDiscount.IsZero())
	assert.True(t, totals.Subtotal.Equal(d("0.1")))
}

func TestOrderTotals_Rounded(t *testing.T) {
	items := []LineItem{{ItemID: "a", Quantity: 1, UnitPrice: d("9.99"), ItemDiscount: d("0.333")}}

	totals, err := ComputeTotals(items, d("0"), d("6.66"))
	require.NoError(t, err)

	r := totals.Rounded()
	assert.Equal(t, "6.66", r.TotalAfterDiscount.StringFixed(2))
	assert.True(t, r.Remaining.IsZero())
}
