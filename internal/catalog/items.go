package catalog

import (
	"fmt"

	"github.com/ariefcatur/go-donation-fulfillment/internal/sentinel"
)

type ItemType string

const (
	Groceries  ItemType = "groceries"
	Clothing   ItemType = "clothing"
	Medication ItemType = "medication"
	Meals      ItemType = "meals"
)

// Item is one line of a donation or an institute request.
type Item struct {
	Type        ItemType `json:"type"`
	Quantity    int      `json:"quantity"`
	Unit        string   `json:"unit"`
	Description string   `json:"description,omitempty"`
}

// ValidateItems rejects an empty list or any line with quantity below 1.
func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: items must not be empty", sentinel.ErrInvalidArgument)
	}
	for i, it := range items {
		if it.Quantity < 1 {
			return fmt.Errorf("%w: item %d (%s) quantity must be at least 1", sentinel.ErrInvalidArgument, i, it.Type)
		}
	}
	return nil
}

// DistinctTypes returns the item types present in items, in first-seen order.
func DistinctTypes(items []Item) []ItemType {
	seen := make(map[ItemType]bool, len(items))
	out := make([]ItemType, 0, len(items))
	for _, it := range items {
		if seen[it.Type] {
			continue
		}
		seen[it.Type] = true
		out = append(out, it.Type)
	}
	return out
}
