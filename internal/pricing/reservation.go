package pricing

import (
	"sort"

	"github.com/fekuna/flowershop-service/internal/model"
)

// StockAdjustment is a signed change to an item's on-hand stock. Negative
// deltas reserve stock for an order, positive deltas return it.
type StockAdjustment struct {
	ItemID string
	Delta  int
}

// StockLookup reports the quantity currently on hand for an item. Stock
// already reserved by the order being edited is not part of it.
type StockLookup func(itemID string) (int, error)

// DiffAndReserve compares two versions of an order's lines and returns the
// stock changes that move from the first to the second. Only net increases
// are checked against lookup. If any item cannot be covered the whole diff is
// rejected: the error is an *model.InsufficientStockError and no adjustment
// is returned. Results are ordered by item id.
func DiffAndReserve(previous, next []LineItem, lookup StockLookup) ([]StockAdjustment, error) {
	before := quantities(previous)
	after := quantities(next)

	var adjustments []StockAdjustment
	for _, id := range unionIDs(before, after) {
		reserve := after[id] - before[id]
		if reserve == 0 {
			continue
		}

		if reserve > 0 {
			available, err := lookup(id)
			if err != nil {
				return nil, err
			}
			if available-reserve < 0 {
				return nil, &model.InsufficientStockError{
					ItemID:    id,
					Available: available,
					Requested: reserve,
				}
			}
		}

		adjustments = append(adjustments, StockAdjustment{ItemID: id, Delta: -reserve})
	}

	return adjustments, nil
}

// ReleaseAll returns every reserved unit of items to stock. It is the diff
// of items against an empty order.
func ReleaseAll(items []LineItem) []StockAdjustment {
	before := quantities(items)

	var adjustments []StockAdjustment
	for _, id := range unionIDs(before, nil) {
		if before[id] == 0 {
			continue
		}
		adjustments = append(adjustments, StockAdjustment{ItemID: id, Delta: before[id]})
	}
	return adjustments
}

// quantities sums the lines per item, so an item listed twice counts once
// with the combined quantity.
func quantities(items []LineItem) map[string]int {
	m := make(map[string]int, len(items))
	for _, item := range items {
		m[item.ItemID] += item.Quantity
	}
	return m
}

func unionIDs(a, b map[string]int) []string {
	ids := make([]string, 0, len(a)+len(b))
	for id := range a {
		ids = append(ids, id)
	}
	for id := range b {
		if _, ok := a[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
