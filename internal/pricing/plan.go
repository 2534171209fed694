package pricing

import (
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/shopspring/decimal"
)

// Snapshot is an order as it is currently stored. The zero Snapshot stands
// for an order that does not exist yet.
type Snapshot struct {
	CustomerID string
	Status     Status
	Lines      []LineItem
	Settlement Settlement
}

// DraftOrder is the state an order should be moved to.
type DraftOrder struct {
	CustomerID       string
	Status           Status
	Lines            []LineItem
	OrderDiscountPct decimal.Decimal
	Deposit          decimal.Decimal
	Confirmed        bool
}

// Plan is everything one save of an order changes. It is applied in a
// single transaction.
type Plan struct {
	Totals  OrderTotals
	Lines   []LineItem
	Stock   []StockAdjustment
	Loyalty LoyaltyAdjustment
}

// Settlement returns the loyalty view of the stored totals.
func (p Plan) Settlement(d DraftOrder) Settlement {
	return Settlement{
		Total:     p.Totals.TotalAfterDiscount,
		Deposit:   p.Totals.Deposit,
		Confirmed: d.Confirmed,
		Cancelled: d.Status == StatusCancelled,
	}
}

// PlanSave prices next and reconciles it against previous. Totals are kept
// at currency precision because that is what gets stored and what later
// reversals are computed from. The fully paid check and the points awarded
// use that rounded total too, so 4 × 24.999 is stored as 100.00 and earns
// 10 points with a deposit of 100; the reversal of a later edit then takes
// back exactly those 10.
//
// Moving to Cancelled keeps the previous lines for display, returns all of
// their stock, reverses the loyalty award and zeroes the total.
func PlanSave(previous Snapshot, next DraftOrder, lookup StockLookup, rate int64) (Plan, error) {
	if previous.Status.Locked() {
		return Plan{}, model.ErrOrderLocked
	}
	if previous.Status != "" {
		if err := ValidateTransition(previous.Status, next.Status); err != nil {
			return Plan{}, err
		}
	}

	if next.Status == StatusCancelled {
		return planCancel(previous, next, rate)
	}

	totals, err := ComputeTotals(next.Lines, next.OrderDiscountPct, next.Deposit)
	if err != nil {
		return Plan{}, err
	}
	totals = totals.Rounded()

	stock, err := DiffAndReserve(previous.Lines, next.Lines, lookup)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{Totals: totals, Lines: next.Lines, Stock: stock}
	plan.Loyalty = ReconcileLoyalty(next.CustomerID, previous.Settlement, plan.Settlement(next), rate)
	return plan, nil
}

func planCancel(previous Snapshot, next DraftOrder, rate int64) (Plan, error) {
	if previous.Status == "" {
		return Plan{}, model.NewInvalidInput("status", "a new order cannot start cancelled")
	}
	if next.OrderDiscountPct.IsNegative() || next.OrderDiscountPct.GreaterThan(hundred) {
		return Plan{}, model.NewInvalidInput("order_discount", "must be between 0 and 100")
	}
	if next.Deposit.IsNegative() {
		return Plan{}, model.NewInvalidInput("deposit", "must not be negative")
	}

	totals := OrderTotals{
		Subtotal:           decimal.Zero,
		OrderDiscountPct:   next.OrderDiscountPct,
		TotalAfterDiscount: decimal.Zero,
		Deposit:            next.Deposit,
		Remaining:          decimal.Zero,
	}
	plan := Plan{
		Totals: totals,
		Lines:  previous.Lines,
		Stock:  ReleaseAll(previous.Lines),
	}
	plan.Loyalty = ReconcileLoyalty(previous.CustomerID, previous.Settlement, plan.Settlement(next), rate)
	return plan, nil
}

// PlanRemoval undoes an order completely before it is deleted. A cancelled
// order has already given its stock and points back.
func PlanRemoval(previous Snapshot, rate int64) Plan {
	plan := Plan{Lines: previous.Lines}
	if previous.Status.Locked() {
		plan.Loyalty = LoyaltyAdjustment{CustomerID: previous.CustomerID}
		return plan
	}
	plan.Stock = ReleaseAll(previous.Lines)
	plan.Loyalty = ReconcileLoyalty(previous.CustomerID, previous.Settlement, Settlement{Cancelled: true}, rate)
	return plan
}
