package pricing

import (
	"testing"

	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func priced(id string, qty int, price string) LineItem {
	return LineItem{ItemID: id, Quantity: qty, UnitPrice: d(price)}
}

func TestPlanSave_NewOrder(t *testing.T) {
	next := DraftOrder{
		CustomerID:       "c1",
		Status:           StatusPending,
		Lines:            []LineItem{priced("A", 2, "10.00"), priced("B", 1, "15.00")},
		OrderDiscountPct: decimal.Zero,
		Deposit:          d("35"),
		Confirmed:        true,
	}

	plan, err := PlanSave(Snapshot{}, next, stockOf(map[string]int{"A": 2, "B": 1}), DefaultPointRate)
	require.NoError(t, err)

	assert.Equal(t, "35.00", plan.Totals.TotalAfterDiscount.StringFixed(2))
	assert.True(t, plan.Totals.Remaining.IsZero())
	assert.Equal(t, []StockAdjustment{{ItemID: "A", Delta: -2}, {ItemID: "B", Delta: -1}}, plan.Stock)
	assert.Equal(t, LoyaltyAdjustment{CustomerID: "c1", Awarded: 3}, plan.Loyalty)
}

func TestPlanSave_UnconfirmedEarnsNothing(t *testing.T) {
	next := DraftOrder{
		CustomerID: "c1",
		Status:     StatusPending,
		Lines:      []LineItem{priced("A", 1, "100")},
		Deposit:    d("100"),
	}

	plan, err := PlanSave(Snapshot{}, next, stockOf(map[string]int{"A": 1}), DefaultPointRate)
	require.NoError(t, err)
	assert.True(t, plan.Loyalty.IsZero())
}

func TestPlanSave_StoresRoundedTotals(t *testing.T) {
	next := DraftOrder{
		Status: StatusPending,
		Lines:  []LineItem{{ItemID: "A", Quantity: 1, UnitPrice: d("9.99"), ItemDiscount: d("0.333")}},
	}

	plan, err := PlanSave(Snapshot{}, next, stockOf(map[string]int{"A": 1}), DefaultPointRate)
	require.NoError(t, err)
	assert.True(t, plan.Totals.TotalAfterDiscount.Equal(d("6.66")))
	assert.True(t, plan.Totals.Remaining.Equal(d("6.66")))
}

func TestPlanSave_PointsFollowStoredTotal(t *testing.T) {
	next := DraftOrder{
		CustomerID: "c1",
		Status:     StatusPending,
		Lines:      []LineItem{priced("A", 4, "24.999")},
		Deposit:    d("100"),
		Confirmed:  true,
	}

	plan, err := PlanSave(Snapshot{}, next, stockOf(map[string]int{"A": 4}), DefaultPointRate)
	require.NoError(t, err)
	assert.True(t, plan.Totals.TotalAfterDiscount.Equal(d("100")), "99.996 is stored as 100.00")
	assert.Equal(t, int64(10), plan.Loyalty.Awarded)

	next.Deposit = d("99.99")
	plan, err = PlanSave(Snapshot{}, next, stockOf(map[string]int{"A": 4}), DefaultPointRate)
	require.NoError(t, err)
	assert.Zero(t, plan.Loyalty.Awarded, "a deposit below the stored total is not fully paid")
}

func TestPlanSave_EditReconcilesStockAndPoints(t *testing.T) {
	previous := Snapshot{
		CustomerID: "c1",
		Status:     StatusPending,
		Lines:      []LineItem{priced("A", 2, "50")},
		Settlement: Settlement{Total: d("100"), Deposit: d("100"), Confirmed: true},
	}
	next := DraftOrder{
		CustomerID: "c1",
		Status:     StatusProcessing,
		Lines:      []LineItem{priced("A", 1, "50")},
		Deposit:    d("100"),
		Confirmed:  true,
	}

	plan, err := PlanSave(previous, next, stockOf(nil), DefaultPointRate)
	require.NoError(t, err)

	assert.Equal(t, []StockAdjustment{{ItemID: "A", Delta: 1}}, plan.Stock)
	assert.Equal(t, int64(10), plan.Loyalty.Reversed)
	assert.Equal(t, int64(5), plan.Loyalty.Awarded)
}

func TestPlanSave_CancelReleasesEverything(t *testing.T) {
	previous := Snapshot{
		CustomerID: "c1",
		Status:     StatusProcessing,
		Lines:      []LineItem{priced("A", 4, "15"), priced("B", 2, "12.50")},
		Settlement: Settlement{Total: d("85"), Deposit: d("85"), Confirmed: true},
	}
	next := DraftOrder{Status: StatusCancelled, Deposit: d("85"), Confirmed: true}

	plan, err := PlanSave(previous, next, stockOf(nil), DefaultPointRate)
	require.NoError(t, err)

	assert.Equal(t, []StockAdjustment{{ItemID: "A", Delta: 4}, {ItemID: "B", Delta: 2}}, plan.Stock)
	assert.Equal(t, LoyaltyAdjustment{CustomerID: "c1", Reversed: 8}, plan.Loyalty)
	assert.True(t, plan.Totals.TotalAfterDiscount.IsZero())
	assert.True(t, plan.Totals.Deposit.Equal(d("85")))
	assert.Equal(t, previous.Lines, plan.Lines, "lines stay on a cancelled order")
}

func TestPlanSave_CancelledOrderIsLocked(t *testing.T) {
	previous := Snapshot{CustomerID: "c1", Status: StatusCancelled, Lines: []LineItem{priced("A", 1, "1")}}

	_, err := PlanSave(previous, DraftOrder{Status: StatusPending, Lines: previous.Lines}, stockOf(nil), DefaultPointRate)
	assert.ErrorIs(t, err, model.ErrOrderLocked)
}

func TestPlanSave_RejectsBackwardTransition(t *testing.T) {
	previous := Snapshot{CustomerID: "c1", Status: StatusCompleted, Lines: []LineItem{priced("A", 1, "1")}}

	_, err := PlanSave(previous, DraftOrder{Status: StatusPending, Lines: previous.Lines}, stockOf(nil), DefaultPointRate)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestPlanSave_NewOrderCannotStartCancelled(t *testing.T) {
	_, err := PlanSave(Snapshot{}, DraftOrder{Status: StatusCancelled}, stockOf(nil), DefaultPointRate)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestPlanSave_InsufficientStockLeavesNothingPlanned(t *testing.T) {
	next := DraftOrder{Status: StatusPending, Lines: []LineItem{priced("A", 6, "1")}}

	plan, err := PlanSave(Snapshot{}, next, stockOf(map[string]int{"A": 5}), DefaultPointRate)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)
	assert.Empty(t, plan.Stock)
}

func TestPlanRemoval(t *testing.T) {
	previous := Snapshot{
		CustomerID: "c1",
		Status:     StatusCompleted,
		Lines:      []LineItem{priced("A", 3, "40")},
		Settlement: Settlement{Total: d("120"), Deposit: d("120"), Confirmed: true},
	}

	plan := PlanRemoval(previous, DefaultPointRate)
	assert.Equal(t, []StockAdjustment{{ItemID: "A", Delta: 3}}, plan.Stock)
	assert.Equal(t, LoyaltyAdjustment{CustomerID: "c1", Reversed: 12}, plan.Loyalty)
}

func TestPlanRemoval_CancelledOrderChangesNothing(t *testing.T) {
	previous := Snapshot{
		CustomerID: "c1",
		Status:     StatusCancelled,
		Lines:      []LineItem{priced("A", 3, "40")},
		Settlement: Settlement{Total: d("0"), Deposit: d("120"), Confirmed: true, Cancelled: true},
	}

	plan := PlanRemoval(previous, DefaultPointRate)
	assert.Empty(t, plan.Stock)
	assert.True(t, plan.Loyalty.IsZero())
}
