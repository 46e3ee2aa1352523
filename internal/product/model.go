package product

import "github.com/shopspring/decimal"

// Product is a catalog row. The order flows only read it.
type Product struct {
	ID          string
	StoreID     string
	Name        string
	Description *string
	Price       decimal.Decimal
}

// Selection is a set of resolved catalog products and their server-side total.
type Selection struct {
	Products []Product
	Total    decimal.Decimal
}

// IDs returns the ids of the resolved products in catalog order.
func (s Selection) IDs() []string {
	ids := make([]string, 0, len(s.Products))
	for _, p := range s.Products {
		ids = append(ids, p.ID)
	}
	return ids
}
