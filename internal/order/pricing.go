package order

import (
	"github.com/shopspring/decimal"
)

// CalculateTotal sums price*quantity over items in exact decimal arithmetic.
func CalculateTotal(items []Item) float64 {
	total := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	return total.Round(2).InexactFloat64()
}

// Summary is the checkout view of an order. It is derived on demand and
// never stored, so the stored total never includes the delivery fee.
type Summary struct {
	OrderID       string        `json:"orderId"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Subtotal      float64       `json:"subtotal"`
	DeliveryFee   float64       `json:"deliveryFee"`
	Total         float64       `json:"total"`
	PickupAddress string        `json:"pickupAddress,omitempty"`
}

func Summarize(o *Order, deliveryFee float64, storeAddress string) Summary {
	fee := decimal.Zero
	if o.PaymentMethod == PaymentCash {
		fee = decimal.NewFromFloat(deliveryFee)
	}

	subtotal := decimal.NewFromFloat(o.Total)

	summary := Summary{
		OrderID:       o.ID,
		PaymentMethod: o.PaymentMethod,
		Subtotal:      subtotal.InexactFloat64(),
		DeliveryFee:   fee.InexactFloat64(),
		Total:         subtotal.Add(fee).Round(2).InexactFloat64(),
	}
	if o.PaymentMethod == PaymentPickup {
		summary.PickupAddress = storeAddress
	}
	return summary
}
