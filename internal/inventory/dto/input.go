package dto

type AdjustStockInput struct {
	ItemID         string
	QuantityChange int
	Reason         string
	EmployeeID     string
}
