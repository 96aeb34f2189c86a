package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateLinkRequestShape(t *testing.T) {
	var captured map[string]any
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/links", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]string{"paymentUrl": "https://pay.example/abc", "id": "tx-1"})
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL, Token: "secret", HTTP: srv.Client()}
	expires := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	link, err := client.CreateLink(context.Background(), LinkRequest{
		Amount:        1500.50,
		Currency:      "RUB",
		OrderID:       "123456",
		Description:   "Order ORD-20260825-123456",
		ExpiresAt:     expires,
		CustomerEmail: "buyer@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/abc", link.PaymentURL)
	require.Equal(t, "tx-1", link.TransactionID)

	require.Equal(t, "Bearer secret", gotAuth)
	require.Equal(t, "123456", captured["orderId"])
	require.Equal(t, "RUB", captured["currency"])
	require.Equal(t, "2026-08-25T12:00:00Z", captured["expirationDateTime"])
	require.Equal(t, "buyer@example.com", captured["customerEmail"])
	_, hasPhone := captured["customerPhone"]
	require.False(t, hasPhone, "empty optional fields must be omitted")
}

func TestCreateLinkURLFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://pay.example/fallback"})
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL, Token: "secret", HTTP: srv.Client()}
	link, err := client.CreateLink(context.Background(), LinkRequest{Amount: 10, Currency: "RUB", OrderID: "1", ExpiresAt: time.Now()})
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/fallback", link.PaymentURL)
}

func TestCreateLinkUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"bad token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL, Token: "wrong", HTTP: srv.Client()}
	_, err := client.CreateLink(context.Background(), LinkRequest{Amount: 10, Currency: "RUB", OrderID: "1", ExpiresAt: time.Now()})
	require.ErrorIs(t, err, ErrUpstream)
}

func TestCreateLinkWithoutToken(t *testing.T) {
	client := &Client{BaseURL: "http://127.0.0.1:0"}
	_, err := client.CreateLink(context.Background(), LinkRequest{Amount: 10, Currency: "RUB", OrderID: "1", ExpiresAt: time.Now()})
	require.Error(t, err)
}

func TestPublicKeyFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/public-key", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"value": "-----BEGIN PUBLIC KEY-----"})
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	pem, err := client.PublicKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "-----BEGIN PUBLIC KEY-----", pem)
}

func TestPublicKeyEmptyValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"value": ""})
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	_, err := client.PublicKey(context.Background())
	require.ErrorIs(t, err, ErrUpstream)
}
