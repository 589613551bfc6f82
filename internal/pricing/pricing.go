package pricing

import (
	"github.com/ariefcatur/go-donation-fulfillment/internal/catalog"
	"github.com/shopspring/decimal"
)

var (
	deliveryRate  = decimal.NewFromFloat(0.10)
	deliveryFloor = decimal.NewFromInt(100)
)

// PriceList is the catalog lookup pricing needs.
type PriceList interface {
	BasePrice(t catalog.ItemType) (decimal.Decimal, error)
}

type Quote struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	Total          decimal.Decimal `json:"total_amount"`
}

// ComputeSubtotal sums base price times quantity over items.
func ComputeSubtotal(items []catalog.Item, prices PriceList) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, it := range items {
		p, err := prices.BasePrice(it.Type)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(p.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total, nil
}

// ComputeDeliveryCharge is 10% of subtotal, never below 100.
func ComputeDeliveryCharge(subtotal decimal.Decimal) decimal.Decimal {
	return decimal.Max(subtotal.Mul(deliveryRate), deliveryFloor)
}

func Compute(items []catalog.Item, prices PriceList) (Quote, error) {
	sub, err := ComputeSubtotal(items, prices)
	if err != nil {
		return Quote{}, err
	}
	delivery := ComputeDeliveryCharge(sub)
	return Quote{Subtotal: sub, DeliveryCharge: delivery, Total: sub.Add(delivery)}, nil
}
