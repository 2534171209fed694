package dto

import "time"

type MovementFilters struct {
	ItemID        string
	MovementType  string
	ReferenceType string
	ReferenceID   string
	StartDate     *time.Time
	EndDate       *time.Time
	Page          int
	PageSize      int
}
