package store

import (
	"errors"
	"time"
)

// OrderStatus enumerates the order lifecycle states.
type OrderStatus string

const (
	// StatusPending is the state of a freshly created order awaiting payment.
	StatusPending OrderStatus = "pending"
	// StatusPaid marks a settled order. Terminal against further success callbacks.
	StatusPaid OrderStatus = "paid"
	// StatusFailed marks a rejected or errored payment.
	StatusFailed OrderStatus = "failed"
)

var (
	// ErrOrderNotFound is returned when no order matches the lookup key.
	ErrOrderNotFound = errors.New("store: order not found")
	// ErrOrderIDExhausted is returned when the bounded retry loop could not
	// allocate a provider order id that satisfies the uniqueness constraint.
	ErrOrderIDExhausted = errors.New("store: provider order id allocation exhausted")
)

// Order mirrors a row of the orders table. ID is the internal UUID in its
// canonical text form.
type Order struct {
	ID                string
	OrderNumber       string
	WataOrderID       int64
	Amount            float64
	Currency          string
	Status            OrderStatus
	UserName          string
	UserEmail         string
	UserPhone         string
	DeliveryAddress   string
	OrderComment      string
	PaymentURL        string
	WataTransactionID string
	PaidAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderItem is a line item captured at checkout time. Immutable after creation.
type OrderItem struct {
	ProductID    int64
	ProductName  string
	ProductPrice float64
	Quantity     int32
}

// NewOrder carries the fields required to create an order row.
type NewOrder struct {
	Amount          float64
	Currency        string
	UserName        string
	UserEmail       string
	UserPhone       string
	DeliveryAddress string
	OrderComment    string
}
