package pricing

import (
	"fmt"

	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the precision amounts are stored and displayed with.
const CurrencyPlaces = 2

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

type LineItem struct {
	ItemID       string
	Quantity     int
	UnitPrice    decimal.Decimal
	ItemDiscount decimal.Decimal // fraction in [0,1)
}

// Total is quantity × unit price × (1 − item discount).
func (l LineItem) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Mul(one.Sub(l.ItemDiscount))
}

type OrderTotals struct {
	Subtotal           decimal.Decimal
	OrderDiscountPct   decimal.Decimal
	TotalAfterDiscount decimal.Decimal
	Deposit            decimal.Decimal
	Remaining          decimal.Decimal
}

// Rounded returns the totals at currency precision. Remaining is derived
// again from the rounded amounts so the three always add up.
func (t OrderTotals) Rounded() OrderTotals {
	r := OrderTotals{
		Subtotal:           t.Subtotal.Round(CurrencyPlaces),
		OrderDiscountPct:   t.OrderDiscountPct,
		TotalAfterDiscount: t.TotalAfterDiscount.Round(CurrencyPlaces),
		Deposit:            t.Deposit.Round(CurrencyPlaces),
	}
	r.Remaining = remaining(r.TotalAfterDiscount, r.Deposit)
	return r
}

// ComputeTotals prices a set of line items. The inputs are validated first;
// an InvalidInputError means nothing was computed.
func ComputeTotals(items []LineItem, orderDiscountPct, deposit decimal.Decimal) (OrderTotals, error) {
	if err := ValidateLines(items); err != nil {
		return OrderTotals{}, err
	}
	if orderDiscountPct.IsNegative() || orderDiscountPct.GreaterThan(hundred) {
		return OrderTotals{}, model.NewInvalidInput("order_discount", "must be between 0 and 100")
	}
	if deposit.IsNegative() {
		return OrderTotals{}, model.NewInvalidInput("deposit", "must not be negative")
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Total())
	}

	// Shift(-2) turns the percentage into a fraction without a division.
	total := subtotal.Mul(one.Sub(orderDiscountPct.Shift(-2)))

	return OrderTotals{
		Subtotal:           subtotal,
		OrderDiscountPct:   orderDiscountPct,
		TotalAfterDiscount: total,
		Deposit:            deposit,
		Remaining:          remaining(total, deposit),
	}, nil
}

func ValidateLines(items []LineItem) error {
	for i, item := range items {
		if item.ItemID == "" {
			return model.NewInvalidInput(fmt.Sprintf("items[%d].item_id", i), "is required")
		}
		if item.Quantity <= 0 {
			return model.NewInvalidInput(fmt.Sprintf("items[%d].quantity", i), "must be greater than 0")
		}
		if item.UnitPrice.IsNegative() {
			return model.NewInvalidInput(fmt.Sprintf("items[%d].unit_price", i), "must not be negative")
		}
		if item.ItemDiscount.IsNegative() || item.ItemDiscount.GreaterThanOrEqual(one) {
			return model.NewInvalidInput(fmt.Sprintf("items[%d].item_discount", i), "must be in [0, 1)")
		}
	}
	return nil
}

func remaining(total, deposit decimal.Decimal) decimal.Decimal {
	r := total.Sub(deposit)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}
