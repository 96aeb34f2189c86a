package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/wata-gateway/internal/obs"
	"github.com/noah-isme/wata-gateway/internal/store"
)

// TaskOrderPaid is the asynq task type for order confirmation emails.
const TaskOrderPaid = "notify:order_paid"

// OrderPaidPayload is the task payload queued when an order settles.
type OrderPaidPayload struct {
	OrderID     string  `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	UserName    string  `json:"user_name"`
	UserEmail   string  `json:"user_email"`
}

// Enqueuer queues notification tasks on Redis via asynq.
type Enqueuer struct {
	Client *asynq.Client
	Logger zerolog.Logger
}

// NewEnqueuer constructs an Enqueuer.
func NewEnqueuer(client *asynq.Client, logger zerolog.Logger) *Enqueuer {
	return &Enqueuer{Client: client, Logger: logger}
}

// OrderPaid queues a confirmation task for a settled order.
func (e *Enqueuer) OrderPaid(ctx context.Context, ord store.Order) error {
	if e == nil || e.Client == nil {
		return nil
	}
	payload, err := json.Marshal(OrderPaidPayload{
		OrderID:     ord.ID,
		OrderNumber: ord.OrderNumber,
		Amount:      ord.Amount,
		Currency:    ord.Currency,
		UserName:    ord.UserName,
		UserEmail:   ord.UserEmail,
	})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskOrderPaid, payload)
	if _, err := e.Client.EnqueueContext(ctx, task,
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	); err != nil {
		countEnqueue("error")
		return err
	}
	countEnqueue("success")
	e.Logger.Info().Str("order_number", ord.OrderNumber).Msg("queued order paid notification")
	return nil
}

func countEnqueue(result string) {
	if obs.NotifyEnqueueTotal != nil {
		obs.NotifyEnqueueTotal.WithLabelValues(result).Inc()
	}
}
