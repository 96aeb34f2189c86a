package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// EmailSender delivers order confirmation mail. The default implementation
// only logs; a real SMTP or ESP sender plugs in behind this interface.
type EmailSender interface {
	SendOrderPaid(ctx context.Context, payload OrderPaidPayload) error
}

// LogSender is an EmailSender that records the would-be delivery. Used when
// email sending is disabled.
type LogSender struct {
	Logger zerolog.Logger
}

// SendOrderPaid logs the confirmation instead of sending it.
func (s LogSender) SendOrderPaid(_ context.Context, payload OrderPaidPayload) error {
	s.Logger.Info().
		Str("order_number", payload.OrderNumber).
		Str("user_email", payload.UserEmail).
		Msg("order paid notification (email disabled)")
	return nil
}

// Worker consumes notification tasks.
type Worker struct {
	Sender EmailSender
	Logger zerolog.Logger
}

// Register attaches the worker's handlers to an asynq mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskOrderPaid, w.handleOrderPaid)
}

func (w *Worker) handleOrderPaid(ctx context.Context, task *asynq.Task) error {
	var payload OrderPaidPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// malformed payloads never become valid, skip retries
		return fmt.Errorf("decode order paid payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := w.Sender.SendOrderPaid(ctx, payload); err != nil {
		w.Logger.Error().Err(err).Str("order_number", payload.OrderNumber).Msg("send order paid notification")
		return err
	}
	return nil
}
