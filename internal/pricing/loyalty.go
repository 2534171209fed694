package pricing

import "github.com/shopspring/decimal"

// DefaultPointRate is how many currency units earn one loyalty point.
const DefaultPointRate = 10

// Settlement is the payment side of an order as far as loyalty is concerned.
type Settlement struct {
	Total     decimal.Decimal
	Deposit   decimal.Decimal
	Confirmed bool
	Cancelled bool
}

// FullyPaid reports deposit >= total. Equality counts as paid.
func (s Settlement) FullyPaid() bool {
	return s.Deposit.GreaterThanOrEqual(s.Total)
}

// AwardedPoints is what an order in state s has earned: floor(total / rate)
// for a confirmed, fully paid order that is not cancelled, otherwise zero.
func AwardedPoints(s Settlement, rate int64) int64 {
	if s.Cancelled || !s.Confirmed || !s.FullyPaid() || !s.Total.IsPositive() {
		return 0
	}
	if rate <= 0 {
		rate = DefaultPointRate
	}
	q, _ := s.Total.QuoRem(decimal.NewFromInt(rate), 0)
	return q.IntPart()
}

// LoyaltyAdjustment undoes the points an order earned before and grants what
// it earns now. It must be written as one update.
type LoyaltyAdjustment struct {
	CustomerID string
	Reversed   int64
	Awarded    int64
}

func (a LoyaltyAdjustment) Delta() int64 {
	return a.Awarded - a.Reversed
}

func (a LoyaltyAdjustment) IsZero() bool {
	return a.Reversed == 0 && a.Awarded == 0
}

// Apply returns the balance after the adjustment. The reversal is clamped at
// zero before the award is added.
func (a LoyaltyAdjustment) Apply(balance int64) int64 {
	b := balance - a.Reversed
	if b < 0 {
		b = 0
	}
	return b + a.Awarded
}

// ReconcileLoyalty computes the adjustment for an order moving from previous
// to next. A cancelled next state earns nothing, so the result is a pure
// reversal.
func ReconcileLoyalty(customerID string, previous, next Settlement, rate int64) LoyaltyAdjustment {
	return LoyaltyAdjustment{
		CustomerID: customerID,
		Reversed:   AwardedPoints(previous, rate),
		Awarded:    AwardedPoints(next, rate),
	}
}
