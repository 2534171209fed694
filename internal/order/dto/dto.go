package dto

type OrderFilters struct {
	SearchQuery string // customer name
	Status      string
	CustomerID  string
	Page        int
	PageSize    int
}
