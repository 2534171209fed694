package dto

type CreateCustomerInput struct {
	Name  string
	Phone string
}

// UpdateCustomerInput changes contact details only. Loyalty points move with
// orders.
type UpdateCustomerInput struct {
	ID    string
	Name  string
	Phone string
}
