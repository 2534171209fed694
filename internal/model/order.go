package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	BaseModel
	CustomerID      string          `db:"customer_id" json:"customer_id"`
	CustomerName    string          `db:"customer_name" json:"customer_name"` // Joined data
	EmployeeID      string          `db:"employee_id" json:"employee_id"`
	Status          string          `db:"order_status" json:"status"`
	OrderDiscount   decimal.Decimal `db:"order_discount" json:"order_discount"` // percent, 0-100
	PaymentDate     *time.Time      `db:"payment_date" json:"payment_date"`
	PaymentMethod   string          `db:"payment_method" json:"payment_method"`
	TotalPrice      decimal.Decimal `db:"total_price" json:"total_price"` // after order discount, zero once cancelled
	Budget          decimal.Decimal `db:"budget" json:"budget"`
	Deposit         decimal.Decimal `db:"deposit" json:"deposit"`
	Confirmation    bool            `db:"confirmation" json:"confirmation"`
	ReceiverAddress string          `db:"receiver_address" json:"receiver_address"`
	ReceiverPhone   string          `db:"receiver_phone" json:"receiver_phone"`
	Lines           []OrderLine     `db:"-" json:"lines"`
}

// Remaining is the unpaid part of the stored total, never negative.
func (o *Order) Remaining() decimal.Decimal {
	r := o.TotalPrice.Sub(o.Deposit)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

type OrderLine struct {
	OrderID      string          `db:"order_id" json:"order_id"`
	ItemID       string          `db:"item_id" json:"item_id"`
	ItemName     string          `db:"item_name" json:"item_name"` // Joined data
	Quantity     int             `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	ItemDiscount decimal.Decimal `db:"item_discount" json:"item_discount"`
}
