package order

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/wata-gateway/internal/common"
	"github.com/noah-isme/wata-gateway/internal/obs"
	"github.com/noah-isme/wata-gateway/internal/payment"
	"github.com/noah-isme/wata-gateway/internal/store"
)

// OrderStore is the slice of the store the intake service needs.
type OrderStore interface {
	CreateOrder(ctx context.Context, in store.NewOrder, items []store.OrderItem, attempts int) (store.Order, error)
	SetPaymentLink(ctx context.Context, orderID string, paymentURL, transactionID string) error
}

// LinkCreator requests payment links from the provider.
type LinkCreator interface {
	CreateLink(ctx context.Context, req payment.LinkRequest) (payment.LinkResponse, error)
}

// CheckoutRequest is the inbound checkout payload.
type CheckoutRequest struct {
	Amount       float64        `json:"amount" validate:"required,gt=0"`
	UserName     string         `json:"user_name" validate:"required"`
	UserEmail    string         `json:"user_email" validate:"required,email"`
	UserPhone    string         `json:"user_phone"`
	UserAddress  string         `json:"user_address"`
	OrderComment string         `json:"order_comment"`
	SuccessURL   string         `json:"success_url" validate:"omitempty,url"`
	FailURL      string         `json:"fail_url" validate:"omitempty,url"`
	CartItems    []CheckoutItem `json:"cart_items" validate:"omitempty,dive"`
}

// CheckoutItem is one line item of a checkout request.
type CheckoutItem struct {
	ID       int64   `json:"id" validate:"required,gt=0"`
	Name     string  `json:"name" validate:"required"`
	Price    float64 `json:"price" validate:"gte=0"`
	Quantity int32   `json:"quantity" validate:"required,gt=0"`
}

// CheckoutResult is what the API returns for a successful checkout.
type CheckoutResult struct {
	PaymentURL        string `json:"payment_url"`
	OrderID           string `json:"order_id"`
	OrderNumber       string `json:"order_number"`
	WataTransactionID string `json:"wata_transaction_id,omitempty"`
}

// Service implements order intake: persist the order, request a payment link
// and store it. Links is nil when no provider token is configured, in which
// case every checkout fails with PAYMENT_NOT_CONFIGURED.
type Service struct {
	Store      OrderStore
	Links      LinkCreator
	Logger     zerolog.Logger
	Currency   string
	LinkTTL    time.Duration
	IDAttempts int
}

// Checkout runs the intake flow. Failures after the order row is committed
// leave the order in pending without a payment link; the caller sees an
// error and may retry with a fresh checkout.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	if s.Links == nil {
		return CheckoutResult{}, common.NewAppError(
			"PAYMENT_NOT_CONFIGURED", "payment provider is not configured", http.StatusInternalServerError, nil)
	}

	items := make([]store.OrderItem, 0, len(req.CartItems))
	for _, item := range req.CartItems {
		items = append(items, store.OrderItem{
			ProductID:    item.ID,
			ProductName:  item.Name,
			ProductPrice: item.Price,
			Quantity:     item.Quantity,
		})
	}

	ord, err := s.Store.CreateOrder(ctx, store.NewOrder{
		Amount:          req.Amount,
		Currency:        s.currency(),
		UserName:        req.UserName,
		UserEmail:       req.UserEmail,
		UserPhone:       req.UserPhone,
		DeliveryAddress: req.UserAddress,
		OrderComment:    req.OrderComment,
	}, items, s.IDAttempts)
	if err != nil {
		return CheckoutResult{}, common.NewAppError(
			"INTERNAL", "unable to create order", http.StatusInternalServerError, err)
	}

	link, err := s.Links.CreateLink(ctx, payment.LinkRequest{
		Amount:             ord.Amount,
		Currency:           ord.Currency,
		OrderID:            strconv.FormatInt(ord.WataOrderID, 10),
		Description:        "Order " + ord.OrderNumber,
		ExpiresAt:          time.Now().Add(s.linkTTL()),
		SuccessRedirectURL: req.SuccessURL,
		FailRedirectURL:    req.FailURL,
		CustomerEmail:      ord.UserEmail,
		CustomerPhone:      ord.UserPhone,
	})
	if err != nil {
		s.Logger.Error().Err(err).Str("order_number", ord.OrderNumber).Msg("create payment link")
		countLink("error")
		return CheckoutResult{}, common.NewAppError(
			"WATA_API_ERROR", "payment provider rejected the link request", http.StatusInternalServerError, err)
	}

	if err := s.Store.SetPaymentLink(ctx, ord.ID, link.PaymentURL, link.TransactionID); err != nil {
		countLink("error")
		return CheckoutResult{}, common.NewAppError(
			"INTERNAL", "unable to store payment link", http.StatusInternalServerError, err)
	}

	countLink("success")
	s.Logger.Info().
		Str("order_number", ord.OrderNumber).
		Int64("wata_order_id", ord.WataOrderID).
		Msg("order created with payment link")
	return CheckoutResult{
		PaymentURL:        link.PaymentURL,
		OrderID:           ord.ID,
		OrderNumber:       ord.OrderNumber,
		WataTransactionID: link.TransactionID,
	}, nil
}

func (s *Service) currency() string {
	if s.Currency == "" {
		return "RUB"
	}
	return s.Currency
}

func (s *Service) linkTTL() time.Duration {
	if s.LinkTTL <= 0 {
		return 24 * time.Hour
	}
	return s.LinkTTL
}

func countLink(result string) {
	if obs.PaymentLinkTotal != nil {
		obs.PaymentLinkTotal.WithLabelValues(result).Inc()
	}
}
