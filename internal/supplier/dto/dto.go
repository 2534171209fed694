package dto

type SupplierFilters struct {
	SearchQuery string
	Page        int
	PageSize    int
}
