package model

import "time"

const (
	OrderEventCreated   = "OrderCreated"
	OrderEventUpdated   = "OrderUpdated"
	OrderEventCancelled = "OrderCancelled"
	OrderEventDeleted   = "OrderDeleted"
)

// OrderEvent is published after an order transaction commits.
type OrderEvent struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Payload   OrderEventDetail `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
}

type OrderEventDetail struct {
	OrderID      string             `json:"order_id"`
	CustomerID   string             `json:"customer_id"`
	Status       string             `json:"status"`
	TotalPrice   string             `json:"total_price"`
	Stock        []StockChangeEvent `json:"stock"`
	LoyaltyDelta int64              `json:"loyalty_delta"`
}

type StockChangeEvent struct {
	ItemID string `json:"item_id"`
	Delta  int    `json:"delta"`
}
