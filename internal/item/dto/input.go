package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateItemInput struct {
	Name          string
	Type          string
	ArrivalDate   *time.Time
	ItemDiscount  decimal.Decimal
	PriceAmount   decimal.Decimal
	PriceDate     *time.Time
	StockQuantity int
}

// UpdateItemInput replaces the descriptive fields of an item. Stock is only
// changed through orders and inventory adjustments.
type UpdateItemInput struct {
	ID           string
	Name         string
	Type         string
	ArrivalDate  *time.Time
	ItemDiscount decimal.Decimal
	PriceAmount  decimal.Decimal
	PriceDate    *time.Time
}
