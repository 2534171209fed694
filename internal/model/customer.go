package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	BaseModel
	Name          string `db:"name" json:"name"`
	Phone         string `db:"phone" json:"phone"`
	LoyaltyPoints int64  `db:"loyalty_points" json:"loyalty_points"`
}

// CustomerOrder is one row of a customer's order history.
type CustomerOrder struct {
	CustomerID   string          `db:"customer_id" json:"customer_id"`
	CustomerName string          `db:"customer_name" json:"customer_name"`
	OrderID      string          `db:"order_id" json:"order_id"`
	PaymentDate  *time.Time      `db:"payment_date" json:"payment_date"`
	TotalPrice   decimal.Decimal `db:"total_price" json:"total_price"`
	Status       string          `db:"order_status" json:"status"`
	Items        []OrderLine     `db:"-" json:"items"`
}
