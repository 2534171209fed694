package dto

type ItemFilters struct {
	SearchQuery string // name or type
	Type        string
	InStock     bool   // only items with stock_quantity > 0
	SortBy      string // name, price, stock, created_at
	SortOrder   string // asc, desc
	Page        int
	PageSize    int
}
