package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type LineInput struct {
	ItemID   string
	Quantity int
}

// CreateOrderInput names the customer either by CustomerID or by name and
// phone, in which case the customer is found or registered.
type CreateOrderInput struct {
	CustomerID    string
	CustomerName  string
	CustomerPhone string
	EmployeeID    string

	Status          string
	OrderDiscount   decimal.Decimal // percent
	PaymentDate     *time.Time
	PaymentMethod   string
	Budget          decimal.Decimal
	Deposit         decimal.Decimal
	Confirmation    bool
	ReceiverAddress string
	ReceiverPhone   string
	Lines           []LineInput
}

// UpdateOrderInput replaces the editable fields of an order. A nil Lines
// keeps the current lines and an empty Status keeps the current status.
type UpdateOrderInput struct {
	ID         string
	EmployeeID string

	Status          string
	OrderDiscount   decimal.Decimal
	PaymentDate     *time.Time
	PaymentMethod   string
	Budget          decimal.Decimal
	Deposit         decimal.Decimal
	Confirmation    bool
	ReceiverAddress string
	ReceiverPhone   string
	Lines           []LineInput
}
