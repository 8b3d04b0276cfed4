package order

import (
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCompleted,
	StatusCanceled,
}

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentPickup PaymentMethod = "pickup"
)

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentPickup
}

// Item is a snapshot of a product at purchase time. Later catalog edits do
// not touch it.
type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Brand    string  `json:"brand,omitempty"`
	Image    string  `json:"image,omitempty"`
	Category string  `json:"category,omitempty"`
}

type Order struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	UserName        string        `json:"userName"`
	UserPhone       string        `json:"userPhone"`
	Items           []Item        `json:"items"`
	Total           float64       `json:"total"`
	Date            time.Time     `json:"date"`
	Status          Status        `json:"status"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	DeliveryAddress string        `json:"deliveryAddress,omitempty"`
}

func (o Order) Key() string { return o.ID }

// UpdateRequest is the only shape accepted for changing an existing order.
// Nil fields are left untouched.
type UpdateRequest struct {
	Status          *Status `json:"status,omitempty"`
	DeliveryAddress *string `json:"deliveryAddress,omitempty"`
}

func (r UpdateRequest) Empty() bool {
	return r.Status == nil && r.DeliveryAddress == nil
}
