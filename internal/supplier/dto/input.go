package dto

type CreateSupplierInput struct {
	Name    string
	Contact string
	ItemIDs []string
}

type UpdateSupplierInput struct {
	ID      string
	Name    string
	Contact string
	ItemIDs []string
}
