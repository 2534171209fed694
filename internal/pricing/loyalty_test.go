package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAwardedPoints(t *testing.T) {
	cases := []struct {
		name string
		s    Settlement
		want int64
	}{
		{"paid and confirmed", Settlement{Total: d("100"), Deposit: d("100"), Confirmed: true}, 10},
		{"floors fractional points", Settlement{Total: d("109.99"), Deposit: d("200"), Confirmed: true}, 10},
		{"below one point", Settlement{Total: d("9.99"), Deposit: d("9.99"), Confirmed: true}, 0},
		{"not confirmed", Settlement{Total: d("100"), Deposit: d("100")}, 0},
		{"partly paid", Settlement{Total: d("100"), Deposit: d("99.99"), Confirmed: true}, 0},
		{"cancelled", Settlement{Total: d("100"), Deposit: d("100"), Confirmed: true, Cancelled: true}, 0},
		{"zero total", Settlement{Total: d("0"), Deposit: d("0"), Confirmed: true}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AwardedPoints(tc.s, DefaultPointRate))
		})
	}
}

func TestAwardedPoints_CustomRate(t *testing.T) {
	s := Settlement{Total: d("100"), Deposit: d("100"), Confirmed: true}
	assert.Equal(t, int64(4), AwardedPoints(s, 25))
	assert.Equal(t, int64(10), AwardedPoints(s, 0), "non-positive rate falls back to the default")
}

func TestReconcileLoyalty_EditLowersTotal(t *testing.T) {
	previous := Settlement{Total: d("100"), Deposit: d("100"), Confirmed: true}
	next := Settlement{Total: d("50"), Deposit: d("50"), Confirmed: true}

	adj := ReconcileLoyalty("c1", previous, next, DefaultPointRate)
	assert.Equal(t, LoyaltyAdjustment{CustomerID: "c1", Reversed: 10, Awarded: 5}, adj)
	assert.Equal(t, int64(-5), adj.Delta())
	assert.Equal(t, int64(15), adj.Apply(20))
}

func TestReconcileLoyalty_SameStateIsNetZero(t *testing.T) {
	s := Settlement{Total: d("120"), Deposit: d("120"), Confirmed: true}

	adj := ReconcileLoyalty("c1", s, s, DefaultPointRate)
	assert.Zero(t, adj.Delta())
	assert.Equal(t, int64(33), adj.Apply(33))
}

func TestLoyaltyAdjustment_ApplyClampsReversal(t *testing.T) {
	adj := LoyaltyAdjustment{Reversed: 10, Awarded: 3}
	assert.Equal(t, int64(3), adj.Apply(4), "balance is floored at zero before the award")
	assert.Equal(t, int64(0), LoyaltyAdjustment{Reversed: 8}.Apply(2))
}

func TestLoyaltyAdjustment_IsZero(t *testing.T) {
	assert.True(t, LoyaltyAdjustment{CustomerID: "c1"}.IsZero())
	assert.False(t, LoyaltyAdjustment{Awarded: 1}.IsZero())
	assert.False(t, LoyaltyAdjustment{Reversed: 5, Awarded: 5}.IsZero())
}

// An unconfirmed order never earned points, so editing it reverses nothing
// even when it was fully paid. Award and reversal use the same rule.
func TestReconcileLoyalty_UnconfirmedPaidOrderReversesNothing(t *testing.T) {
	previous := Settlement{Total: d("100"), Deposit: d("100")}
	next := Settlement{Total: d("50"), Deposit: d("50"), Confirmed: true}

	adj := ReconcileLoyalty("c1", previous, next, DefaultPointRate)
	assert.Equal(t, LoyaltyAdjustment{CustomerID: "c1", Reversed: 0, Awarded: 5}, adj)
	assert.Equal(t, int64(25), adj.Apply(20))

	adj = ReconcileLoyalty("c1", previous, Settlement{Total: d("100"), Deposit: d("100")}, DefaultPointRate)
	assert.True(t, adj.IsZero())
}
