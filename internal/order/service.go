package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/juju/clock"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/apperr"
)

var ErrInvalidStatusTransition = fmt.Errorf("order: %w", apperr.ErrInvalidTransition)

// StoreAddressSource supplies the pickup address shown on pickup summaries.
type StoreAddressSource interface {
	StoreAddress(ctx context.Context) (string, error)
}

type Pricing struct {
	DeliveryFee float64
	Address     StoreAddressSource
}

type Service interface {
	CreateOrder(ctx context.Context, input *Order) (*Order, error)
	ListOrders(ctx context.Context, userID string) ([]Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	UpdateOrder(ctx context.Context, id string, req UpdateRequest) (*Order, error)
	DeleteOrder(ctx context.Context, id string) error
	Summarize(ctx context.Context, id string) (*Summary, error)
}

type service struct {
	orderRepo Repository
	publisher Publisher
	clock     clock.Clock
	pricing   Pricing
}

func NewService(orderRepo Repository, publisher Publisher, clk clock.Clock, pricing Pricing) Service {
	if publisher == nil {
		publisher = discardPublisher{}
	}
	return &service{
		orderRepo: orderRepo,
		publisher: publisher,
		clock:     clk,
		pricing:   pricing,
	}
}

func (s *service) CreateOrder(ctx context.Context, input *Order) (*Order, error) {
	if err := validateNewOrder(input); err != nil {
		log.Warn().Err(err).Str("user_id", input.UserID).Msg("service: rejected order")
		return nil, err
	}

	candidate := *input
	candidate.ID = ""
	candidate.Status = StatusPending
	candidate.Total = CalculateTotal(input.Items)
	candidate.DeliveryAddress = strings.TrimSpace(input.DeliveryAddress)

	created, err := s.orderRepo.Create(ctx, &candidate)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().Str("order_id", created.ID).Str("user_id", created.UserID).Float64("total", created.Total).Msg("service: order created")

	s.publisher.Publish(Event{
		Kind:       EventCreated,
		Order:      *created,
		To:         created.Status,
		OccurredAt: s.clock.Now().UTC(),
	})

	return created, nil
}

func validateNewOrder(o *Order) error {
	if strings.TrimSpace(o.UserID) == "" {
		return apperr.Invalid("userId", "is required")
	}
	if len(o.Items) == 0 {
		return apperr.Invalid("items", "order must contain at least one item")
	}
	for i, item := range o.Items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.ID) == "" {
			return apperr.Invalid(field+".id", "is required")
		}
		if item.Quantity < 1 {
			return apperr.Invalid(field+".quantity", "must be at least 1")
		}
		if item.Price < 0 {
			return apperr.Invalid(field+".price", "cannot be negative")
		}
	}

	switch o.PaymentMethod {
	case PaymentCash:
		if strings.TrimSpace(o.DeliveryAddress) == "" {
			return apperr.Invalid("deliveryAddress", "is required for cash orders")
		}
	case PaymentPickup:
		if strings.TrimSpace(o.DeliveryAddress) != "" {
			return apperr.Invalid("deliveryAddress", "must be empty for pickup orders")
		}
	default:
		return apperr.Invalid("paymentMethod", fmt.Sprintf("unknown payment method %q", o.PaymentMethod))
	}

	return nil
}

func (s *service) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.orderRepo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch orders in repository")
		return nil, fmt.Errorf("service: failed to fetch orders: %w", err)
	}

	if userID == "" {
		return orders, nil
	}

	filtered := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.UserID == userID {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

func (s *service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Str("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Str("order_id", id).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

// UpdateOrder validates and applies req inside the repository's critical
// section, so concurrent updates to one order never overwrite each other.
func (s *service) UpdateOrder(ctx context.Context, id string, req UpdateRequest) (*Order, error) {
	if req.Empty() {
		return nil, apperr.Invalid("", "update must set status or deliveryAddress")
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, apperr.Invalid("status", fmt.Sprintf("unknown status %q", *req.Status))
	}

	var previous Status
	updated, err := s.orderRepo.Update(ctx, id, func(o *Order) error {
		previous = o.Status

		if req.DeliveryAddress != nil {
			if err := applyDeliveryAddress(o, *req.DeliveryAddress); err != nil {
				return err
			}
		}

		if req.Status != nil {
			if !CanTransition(o.Status, *req.Status) {
				return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, o.Status, *req.Status)
			}
			o.Status = *req.Status
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			log.Warn().Str("order_id", id).Msg("service: order not found, cannot update")
			return nil, ErrOrderNotFound
		case errors.Is(err, apperr.ErrInvalidTransition), errors.Is(err, apperr.ErrValidation):
			log.Warn().Err(err).Str("order_id", id).Msg("service: order update rejected")
			return nil, err
		default:
			log.Error().Err(err).Str("order_id", id).Msg("service: failed to update order in repository")
			return nil, fmt.Errorf("service: failed to update order: %w", err)
		}
	}

	if updated.Status != previous {
		log.Info().Str("order_id", id).Stringer("old_status", previous).Stringer("new_status", updated.Status).Msg("service: order status updated")
		s.publisher.Publish(Event{
			Kind:       EventStatusChanged,
			Order:      *updated,
			From:       previous,
			To:         updated.Status,
			OccurredAt: s.clock.Now().UTC(),
		})
	}

	return updated, nil
}

func applyDeliveryAddress(o *Order, address string) error {
	address = strings.TrimSpace(address)
	switch {
	case o.PaymentMethod != PaymentCash:
		return apperr.Invalid("deliveryAddress", "only cash orders are delivered")
	case o.Status != StatusPending && o.Status != StatusProcessing:
		return apperr.Invalid("deliveryAddress", fmt.Sprintf("cannot change address of a %s order", o.Status))
	case address == "":
		return apperr.Invalid("deliveryAddress", "cannot be empty")
	}
	o.DeliveryAddress = address
	return nil
}

// DeleteOrder removes the order regardless of its status.
func (s *service) DeleteOrder(ctx context.Context, id string) error {
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service: failed to delete order: %w", err)
	}
	log.Info().Str("order_id", id).Msg("service: order deleted")
	return nil
}

func (s *service) Summarize(ctx context.Context, id string) (*Summary, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	var address string
	if o.PaymentMethod == PaymentPickup && s.pricing.Address != nil {
		address, err = s.pricing.Address.StoreAddress(ctx)
		if err != nil {
			return nil, fmt.Errorf("service: failed to resolve store address: %w", err)
		}
	}

	summary := Summarize(o, s.pricing.DeliveryFee, address)
	return &summary, nil
}
