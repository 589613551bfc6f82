package matching

import (
	"fmt"

	"github.com/ariefcatur/go-donation-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-donation-fulfillment/internal/sentinel"
)

// Registry is the read side of a supplier list, in registry order.
type Registry interface {
	All() []catalog.Supplier
}

// FindEligibleSuppliers returns every supplier whose products cover all item
// types in items, in registry order. No supplier qualifying is not an error.
func FindEligibleSuppliers(items []catalog.Item, registry Registry) ([]catalog.Supplier, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: items must not be empty", sentinel.ErrInvalidArgument)
	}
	required := RequiredTypes(items)
	out := []catalog.Supplier{}
	for _, s := range registry.All() {
		if covers(s, required) {
			out = append(out, s)
		}
	}
	return out, nil
}

// FindByTypes is FindEligibleSuppliers for callers that only know the types.
func FindByTypes(types []catalog.ItemType, registry Registry) ([]catalog.Supplier, error) {
	items := make([]catalog.Item, 0, len(types))
	for _, t := range types {
		items = append(items, catalog.Item{Type: t, Quantity: 1})
	}
	return FindEligibleSuppliers(items, registry)
}

// IsEligible reports whether s can fulfil every item type in items.
func IsEligible(s catalog.Supplier, items []catalog.Item) bool {
	return covers(s, RequiredTypes(items))
}

// Missing lists the requested types s does not stock.
func Missing(s catalog.Supplier, items []catalog.Item) []catalog.ItemType {
	var out []catalog.ItemType
	for _, t := range RequiredTypes(items) {
		if !s.Supports(t) {
			out = append(out, t)
		}
	}
	return out
}

// RequiredTypes is the distinct set of item types in items, first-seen order.
func RequiredTypes(items []catalog.Item) []catalog.ItemType {
	return catalog.DistinctTypes(items)
}

func covers(s catalog.Supplier, required []catalog.ItemType) bool {
	for _, t := range required {
		if !s.Supports(t) {
			return false
		}
	}
	return true
}
