package service

import (
	"fmt"
	"slices"

	perrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/abgdnv/catalog/internal/store"
)

// Filter keys accepted by GetProductsByParams.
const (
	FilterCategory     = "category"
	FilterManufacturer = "manufacturer"
	FilterBrand        = "brand"
	FilterCondition    = "condition"
)

var filterFields = map[string]func(store.Product) string{
	FilterCategory:     func(p store.Product) string { return p.Category },
	FilterManufacturer: func(p store.Product) string { return p.Manufacturer },
	FilterCondition:    func(p store.Product) string { return p.Condition },
}

// brand is another name for manufacturer; values given under both keys are merged.
var filterAliases = map[string]string{
	FilterBrand: FilterManufacturer,
}

// filter holds the accepted values per canonical key. Keys are ANDed, values ORed.
type filter map[string][]string

func newFilter(params map[string][]string) (filter, error) {
	f := make(filter, len(params))
	for key, values := range params {
		canonical := key
		if alias, ok := filterAliases[key]; ok {
			canonical = alias
		}
		if _, ok := filterFields[canonical]; !ok {
			return nil, fmt.Errorf("%w: unknown key %q", perrors.ErrInvalidFilter, key)
		}
		// A key present with no values stays in the map and rejects every product.
		f[canonical] = append(f[canonical], values...)
	}
	return f, nil
}

func (f filter) matches(p store.Product) bool {
	for key, values := range f {
		if !slices.Contains(values, filterFields[key](p)) {
			return false
		}
	}
	return true
}
