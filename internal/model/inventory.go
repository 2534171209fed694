package model

import "time"

const (
	MovementOrderReserve = "order_reserve"
	MovementOrderRelease = "order_release"
	MovementAdjustment   = "adjustment"

	ReferenceOrder  = "order"
	ReferenceManual = "manual"
)

type StockMovement struct {
	ID             string    `db:"id" json:"id"`
	ItemID         string    `db:"item_id" json:"item_id"`
	MovementType   string    `db:"movement_type" json:"movement_type"`
	QuantityChange int       `db:"quantity_change" json:"quantity_change"`
	QuantityBefore int       `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  int       `db:"quantity_after" json:"quantity_after"`
	ReferenceType  *string   `db:"reference_type" json:"reference_type"`
	ReferenceID    *string   `db:"reference_id" json:"reference_id"`
	Notes          string    `db:"notes" json:"notes"`
	CreatedBy      *string   `db:"created_by" json:"created_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
