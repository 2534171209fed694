// Package pricing holds the order arithmetic of the shop: totals with order
// and item discounts, stock reservation diffs between two versions of an
// order, loyalty point reconciliation and the order status machine.
//
// Everything here is pure. Callers load the previous state of an order,
// build a DraftOrder for the new state, ask for a Plan and persist the
// whole plan in one transaction.
package pricing
