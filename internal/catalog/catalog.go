package catalog

import (
	"fmt"

	"github.com/ariefcatur/go-donation-fulfillment/internal/sentinel"
	"github.com/shopspring/decimal"
)

// Catalog is static price reference data. It is never mutated after New.
type Catalog struct {
	prices map[ItemType]Price
	order  []ItemType
}

type Price struct {
	Type      ItemType        `json:"type"`
	Name      string          `json:"name"`
	BasePrice decimal.Decimal `json:"base_price"`
}

func New(prices ...Price) *Catalog {
	c := &Catalog{prices: make(map[ItemType]Price, len(prices))}
	for _, p := range prices {
		if _, dup := c.prices[p.Type]; !dup {
			c.order = append(c.order, p.Type)
		}
		c.prices[p.Type] = p
	}
	return c
}

// Default returns the reference price list.
func Default() *Catalog {
	return New(
		Price{Type: Groceries, Name: "Groceries", BasePrice: decimal.NewFromInt(50)},
		Price{Type: Clothing, Name: "Clothing", BasePrice: decimal.NewFromInt(200)},
		Price{Type: Medication, Name: "Medication", BasePrice: decimal.NewFromInt(100)},
		Price{Type: Meals, Name: "Full Day Meals", BasePrice: decimal.NewFromInt(80)},
	)
}

func (c *Catalog) BasePrice(t ItemType) (decimal.Decimal, error) {
	p, ok := c.prices[t]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", sentinel.ErrUnknownItemType, t)
	}
	return p.BasePrice, nil
}

func (c *Catalog) Known(t ItemType) bool {
	_, ok := c.prices[t]
	return ok
}

// Types lists the catalog's item types in registration order.
func (c *Catalog) Types() []ItemType {
	return append([]ItemType(nil), c.order...)
}

// Prices lists the catalog entries in registration order.
func (c *Catalog) Prices() []Price {
	out := make([]Price, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.prices[t])
	}
	return out
}
