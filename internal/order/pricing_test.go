package order_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/order"
)

func TestCalculateTotal(t *testing.T) {
	tests := []struct {
		name  string
		items []order.Item
		want  float64
	}{
		{
			name:  "two lines",
			items: []order.Item{{ID: "a", Price: 10, Quantity: 2}, {ID: "b", Price: 5, Quantity: 1}},
			want:  25,
		},
		{
			name:  "no float drift",
			items: []order.Item{{ID: "a", Price: 0.1, Quantity: 3}, {ID: "b", Price: 0.2, Quantity: 1}},
			want:  0.5,
		},
		{
			name:  "free item",
			items: []order.Item{{ID: "a", Price: 0, Quantity: 4}},
			want:  0,
		},
		{
			name: "empty",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, order.CalculateTotal(tt.items))
		})
	}
}

func TestSummarize(t *testing.T) {
	cash := &order.Order{ID: "ORD-1", Total: 25, PaymentMethod: order.PaymentCash, DeliveryAddress: "123 Main St"}
	pickup := &order.Order{ID: "ORD-2", Total: 25, PaymentMethod: order.PaymentPickup}

	tests := []struct {
		name  string
		order *order.Order
		want  order.Summary
	}{
		{
			name:  "cash adds delivery fee",
			order: cash,
			want:  order.Summary{OrderID: "ORD-1", PaymentMethod: order.PaymentCash, Subtotal: 25, DeliveryFee: 9, Total: 34},
		},
		{
			name:  "pickup uses store address",
			order: pickup,
			want:  order.Summary{OrderID: "ORD-2", PaymentMethod: order.PaymentPickup, Subtotal: 25, DeliveryFee: 0, Total: 25, PickupAddress: "1 Store Rd"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := order.Summarize(tt.order, 9, "1 Store Rd")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Summarize() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	assert.Equal(t, 25.0, cash.Total, "summary must not alter stored total")
}
