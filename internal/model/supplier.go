package model

type Supplier struct {
	BaseModel
	Name      string   `db:"name" json:"name"`
	Contact   string   `db:"contact" json:"contact"`
	ItemIDs   []string `db:"-" json:"item_ids"`
	ItemNames []string `db:"-" json:"item_names"` // Joined data
}
