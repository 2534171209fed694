package dto

type CustomerFilters struct {
	SearchQuery string // name or phone
	Page        int
	PageSize    int
}
