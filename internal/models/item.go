package models

// Item is a single row of the items table.
type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ItemInput is the request body for create and update. Name is a pointer so
// that an absent field can be told apart from an empty string.
type ItemInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ToItem builds the stored item, defaulting a missing description to "".
func (in ItemInput) ToItem(id int64) Item {
	item := Item{ID: id}
	if in.Name != nil {
		item.Name = *in.Name
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	return item
}
