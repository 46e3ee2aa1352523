package product

import "errors"

var (
	ErrNoProductIDs = errors.New("product ids are required")
	ErrNoProducts   = errors.New("no products found")
)
