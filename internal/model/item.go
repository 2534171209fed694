package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	BaseModel
	Name          string          `db:"name" json:"name"`
	Type          string          `db:"type" json:"type"`
	ArrivalDate   *time.Time      `db:"arrival_date" json:"arrival_date"`
	ItemDiscount  decimal.Decimal `db:"item_discount" json:"item_discount"` // fraction in [0,1)
	PriceAmount   decimal.Decimal `db:"price_amount" json:"price_amount"`
	PriceDate     *time.Time      `db:"price_date" json:"price_date"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
	Suppliers     []string        `db:"-" json:"suppliers"` // Joined data
}
