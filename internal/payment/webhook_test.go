package payment

import (
	"bytes"
	"crypto/rsa"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wata-gateway/internal/store"
)

func newWebhookHandler(t *testing.T, st *stubOrderStore, bodyBase64 bool) (*Handler, *rsa.PrivateKey) {
	t.Helper()
	key, pemText := testKeyPair(t)
	return &Handler{
		Verifier:   &Verifier{Keys: staticKeys{pem: pemText, ok: true}, Logger: zerolog.Nop()},
		Resolver:   &Resolver{Store: st, Logger: zerolog.Nop()},
		BodyBase64: bodyBase64,
		Logger:     zerolog.Nop(),
	}, key
}

func postWebhook(h *Handler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/wata", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Signature", signature)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestWebhookAppliesSignedSuccess(t *testing.T) {
	st := newStubStore(store.StatusPending)
	h, key := newWebhookHandler(t, st, false)

	body := []byte(`{"transactionId":"tx-1","orderId":"123456","transactionStatus":"Paid"}`)
	rr := postWebhook(h, body, signPayload(t, key, body))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, store.StatusPaid, st.orders[123456].Status)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	st := newStubStore(store.StatusPending)
	h, key := newWebhookHandler(t, st, false)

	body := []byte(`{"orderId":"123456","transactionStatus":"Paid"}`)
	sig := signPayload(t, key, []byte(`{"orderId":"123456","transactionStatus":"Failed"}`))
	rr := postWebhook(h, body, sig)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "INVALID_SIGNATURE")
	require.Equal(t, store.StatusPending, st.orders[123456].Status, "rejected delivery must not mutate state")
	require.Zero(t, st.applyCalls)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	st := newStubStore(store.StatusPending)
	h, _ := newWebhookHandler(t, st, false)

	rr := postWebhook(h, []byte(`{"orderId":"123456","transactionStatus":"Paid"}`), "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhookAcceptsAlternateSignatureHeader(t *testing.T) {
	st := newStubStore(store.StatusPending)
	h, key := newWebhookHandler(t, st, false)

	body := []byte(`{"orderId":"123456","transactionStatus":"Paid"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/wata", bytes.NewReader(body))
	req.Header.Set("X-Wata-Signature", signPayload(t, key, body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
}

func TestWebhookBadJSONAfterValidSignature(t *testing.T) {
	st := newStubStore(store.StatusPending)
	h, key := newWebhookHandler(t, st, false)

	body := []byte(`{"orderId":`)
	rr := postWebhook(h, body, signPayload(t, key, body))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookMissingOrderID(t *testing.T) {
	st := newStubStore(store.StatusPending)
	h, key := newWebhookHandler(t, st, false)

	body := []byte(`{"transactionStatus":"Paid"}`)
	rr := postWebhook(h, body, signPayload(t, key, body))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookNonNumericOrderID(t *testing.T) {
	st := newStubStore(store.StatusPending)
	h, key := newWebhookHandler(t, st, false)

	body := []byte(`{"orderId":"abc","transactionStatus":"Paid"}`)
	rr := postWebhook(h, body, signPayload(t, key, body))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookUnknownOrder(t *testing.T) {
	st := newStubStore(store.StatusPending)
	h, key := newWebhookHandler(t, st, false)

	body := []byte(`{"orderId":"999999","transactionStatus":"Paid"}`)
	rr := postWebhook(h, body, signPayload(t, key, body))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "ORDER_NOT_FOUND")
}

func TestWebhookUnrecognisedStatusStillOK(t *testing.T) {
	st := newStubStore(store.StatusPending)
	h, key := newWebhookHandler(t, st, false)

	body := []byte(`{"orderId":"123456","transactionStatus":"Refunded"}`)
	rr := postWebhook(h, body, signPayload(t, key, body))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, store.StatusPending, st.orders[123456].Status)
}

func TestWebhookBase64Body(t *testing.T) {
	st := newStubStore(store.StatusPending)
	h, key := newWebhookHandler(t, st, true)

	payload := []byte(`{"orderId":"123456","transactionStatus":"Paid"}`)
	encoded := []byte(base64.StdEncoding.EncodeToString(payload))
	rr := postWebhook(h, encoded, signPayload(t, key, payload))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, store.StatusPaid, st.orders[123456].Status)
}

func TestWebhookBase64BodyRejectsGarbage(t *testing.T) {
	st := newStubStore(store.StatusPending)
	h, _ := newWebhookHandler(t, st, true)

	rr := postWebhook(h, []byte("%%%not-base64%%%"), "c2ln")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
