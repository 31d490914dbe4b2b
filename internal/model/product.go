package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Product represents an item in the catalogue. Values are immutable once
// created by the repository.
type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// NewProduct carries the fields needed to create a product. The repository
// assigns the identifier.
type NewProduct struct {
	Name  string
	Price decimal.Decimal
}

// MarshalJSON renders the price as a JSON number instead of the quoted
// string decimal.Decimal produces by default.
func (p Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    string      `json:"id"`
		Name  string      `json:"name"`
		Price json.Number `json:"price"`
	}{
		ID:    p.ID,
		Name:  p.Name,
		Price: json.Number(p.Price.String()),
	})
}
