package payment

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/wata-gateway/internal/common"
	"github.com/noah-isme/wata-gateway/internal/obs"
	"github.com/noah-isme/wata-gateway/internal/store"
)

const maxWebhookBody = 1 << 20

// Handler serves the inbound WATA payment webhook. Signature verification
// happens over the raw body bytes before any JSON decoding; an unverifiable
// delivery never touches the store.
type Handler struct {
	Verifier *Verifier
	Resolver *Resolver
	// BodyBase64 is set when the provider delivers the JSON payload
	// base64-encoded in the request body.
	BodyBase64 bool
	Logger     zerolog.Logger
}

// ServeHTTP implements http.Handler. The provider retries on any non-2xx, so
// the handler answers 200 for every processed delivery, including
// recognised-but-redundant and unrecognised statuses.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("payment").Start(r.Context(), "webhook.wata")
	defer span.End()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		countWebhook("read_error")
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unable to read request body", nil)
		return
	}
	if h.BodyBase64 {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			countWebhook("bad_encoding")
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "body is not valid base64", nil)
			return
		}
		raw = decoded
	}

	signature := r.Header.Get("X-Signature")
	if signature == "" {
		signature = r.Header.Get("X-Wata-Signature")
	}
	if !h.Verifier.Verify(ctx, raw, signature) {
		countWebhook("invalid_signature")
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "webhook signature verification failed", nil)
		return
	}

	var event WebhookEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		countWebhook("bad_payload")
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "body is not valid JSON", nil)
		return
	}
	if strings.TrimSpace(event.OrderID) == "" {
		countWebhook("bad_payload")
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "orderId is required", nil)
		return
	}
	wataOrderID, err := strconv.ParseInt(strings.TrimSpace(event.OrderID), 10, 64)
	if err != nil {
		countWebhook("bad_payload")
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "orderId must be numeric", nil)
		return
	}
	span.SetAttributes(
		attribute.Int64("wata.order_id", wataOrderID),
		attribute.String("wata.status", event.TransactionStatus),
	)

	outcome, err := h.Resolver.ResolveAndApply(ctx, wataOrderID, event.TransactionStatus)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			countWebhook("order_not_found")
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "no order matches the callback", nil)
			return
		}
		h.Logger.Error().Err(err).Int64("wata_order_id", wataOrderID).Msg("apply webhook status")
		countWebhook("error")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to process webhook", nil)
		return
	}

	switch {
	case outcome.Ignored:
		countWebhook("ignored")
	case outcome.Changed:
		countWebhook("applied")
	default:
		countWebhook("duplicate")
	}
	span.SetAttributes(attribute.Bool("wata.changed", outcome.Changed))

	common.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func countWebhook(result string) {
	if obs.PaymentWebhookTotal != nil {
		obs.PaymentWebhookTotal.WithLabelValues(result).Inc()
	}
}
