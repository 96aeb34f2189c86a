package payment

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/wata-gateway/internal/store"
)

// OrderStore is the slice of the order store the resolver needs.
type OrderStore interface {
	GetOrderByWataID(ctx context.Context, wataOrderID int64) (store.Order, error)
	ApplyPaymentStatus(ctx context.Context, wataOrderID int64, target store.OrderStatus) (store.Order, bool, error)
}

// Notifier schedules customer-facing notifications after settlement.
type Notifier interface {
	OrderPaid(ctx context.Context, order store.Order) error
}

// Outcome describes the result of applying a webhook status to an order.
type Outcome struct {
	Order store.Order
	// Changed is true when the store row was mutated by this delivery.
	Changed bool
	// Ignored is true when the provider status was unrecognised and the
	// order was left untouched.
	Ignored bool
}

// Resolver maps provider callbacks onto order state transitions.
type Resolver struct {
	Store  OrderStore
	Notify Notifier
	Logger zerolog.Logger
}

// ResolveAndApply looks up the order by provider order id and applies the
// classified status. Success statuses settle the order once; redelivered
// success callbacks are no-ops. Failure statuses always write, which lets a
// late failure callback downgrade a paid order (documented provider
// behaviour). Unrecognised statuses leave the order unchanged.
func (r *Resolver) ResolveAndApply(ctx context.Context, wataOrderID int64, providerStatus string) (Outcome, error) {
	target, recognised := classifyStatus(providerStatus)
	if !recognised {
		order, err := r.Store.GetOrderByWataID(ctx, wataOrderID)
		if err != nil {
			return Outcome{}, err
		}
		r.Logger.Info().
			Int64("wata_order_id", wataOrderID).
			Str("provider_status", providerStatus).
			Msg("unrecognised webhook status ignored")
		return Outcome{Order: order, Ignored: true}, nil
	}

	order, changed, err := r.Store.ApplyPaymentStatus(ctx, wataOrderID, target)
	if err != nil {
		return Outcome{}, err
	}
	if changed {
		r.Logger.Info().
			Int64("wata_order_id", wataOrderID).
			Str("order_number", order.OrderNumber).
			Str("status", string(order.Status)).
			Msg("order status updated from webhook")
	}
	if changed && target == store.StatusPaid && r.Notify != nil {
		// best effort: a lost notification must not fail the webhook
		if err := r.Notify.OrderPaid(ctx, order); err != nil {
			r.Logger.Error().Err(err).Str("order_number", order.OrderNumber).Msg("enqueue paid notification")
		}
	}
	return Outcome{Order: order, Changed: changed}, nil
}

func classifyStatus(status string) (store.OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "completed", "paid":
		return store.StatusPaid, true
	case "failed", "error", "rejected":
		return store.StatusFailed, true
	default:
		return "", false
	}
}
