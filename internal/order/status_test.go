package order_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/order"
)

func TestCanTransition_AllPairs(t *testing.T) {
	accepted := map[[2]order.Status]bool{
		{order.StatusPending, order.StatusProcessing}:   true,
		{order.StatusProcessing, order.StatusShipped}:   true,
		{order.StatusShipped, order.StatusDelivered}:    true,
		{order.StatusDelivered, order.StatusCompleted}:  true,
		{order.StatusPending, order.StatusCanceled}:     true,
		{order.StatusProcessing, order.StatusCanceled}:  true,
		{order.StatusShipped, order.StatusCanceled}:     true,
		{order.StatusDelivered, order.StatusCanceled}:   true,
	}

	cases := 0
	for _, from := range order.Statuses {
		for _, to := range order.Statuses {
			cases++
			want := accepted[[2]order.Status{from, to}]
			t.Run(fmt.Sprintf("%s_to_%s", from, to), func(t *testing.T) {
				assert.Equal(t, want, order.CanTransition(from, to))
			})
		}
	}
	assert.Equal(t, 36, cases)
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	assert.False(t, order.CanTransition("lost", order.StatusCanceled))
	assert.False(t, order.CanTransition(order.StatusPending, "lost"))
}

func TestStatus_Next(t *testing.T) {
	tests := []struct {
		from   order.Status
		want   order.Status
		wantOK bool
	}{
		{from: order.StatusPending, want: order.StatusProcessing, wantOK: true},
		{from: order.StatusProcessing, want: order.StatusShipped, wantOK: true},
		{from: order.StatusShipped, want: order.StatusDelivered, wantOK: true},
		{from: order.StatusDelivered, want: order.StatusCompleted, wantOK: true},
		{from: order.StatusCompleted},
		{from: order.StatusCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			got, ok := tt.from.Next()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	for _, s := range order.Statuses {
		want := s == order.StatusCompleted || s == order.StatusCanceled
		assert.Equal(t, want, s.IsTerminal(), s.String())
		assert.True(t, s.Valid(), s.String())
	}
	assert.False(t, order.Status("PAID").Valid())
}
