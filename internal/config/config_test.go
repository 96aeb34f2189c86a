package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":             "postgres://localhost/wata",
		"REDIS_URL":                "redis://localhost:6379/0",
		"WATA_API_URL":             "",
		"WATA_API_TOKEN":           "",
		"PORT":                     "",
		"CURRENCY_CODE":            "",
		"PAYMENT_LINK_TTL":         "",
		"ORDER_ID_ATTEMPTS":        "",
		"WATA_WEBHOOK_BODY_BASE64": "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, DefaultWataAPIURL, cfg.WataAPIURL)
	require.Equal(t, "RUB", cfg.CurrencyCode)
	require.Equal(t, 24*time.Hour, cfg.PaymentLinkTTL)
	require.Equal(t, 10, cfg.OrderIDAttempts)
	require.Equal(t, 30*time.Second, cfg.WataKeyFetchTimeout)
	require.Equal(t, 60*time.Second, cfg.WataLinkTimeout)
	require.False(t, cfg.WebhookBodyBase64)
	require.Empty(t, cfg.WataAPIToken)
	require.Equal(t, ":8080", cfg.HTTPAddr())
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	_, err := LoadForTests(env)
	require.Error(t, err)
}

func TestLoadRequiresRedisURL(t *testing.T) {
	env := baseEnv()
	env["REDIS_URL"] = ""
	_, err := LoadForTests(env)
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["WATA_API_URL"] = "https://sandbox.wata.pro/api/h2h/"
	env["WATA_API_TOKEN"] = "token"
	env["PAYMENT_LINK_TTL"] = "2h"
	env["ORDER_ID_ATTEMPTS"] = "3"
	env["WATA_WEBHOOK_BODY_BASE64"] = "true"
	env["PORT"] = "9090"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)

	require.Equal(t, "https://sandbox.wata.pro/api/h2h", cfg.WataAPIURL, "trailing slash must be trimmed")
	require.Equal(t, "token", cfg.WataAPIToken)
	require.Equal(t, 2*time.Hour, cfg.PaymentLinkTTL)
	require.Equal(t, 3, cfg.OrderIDAttempts)
	require.True(t, cfg.WebhookBodyBase64)
	require.Equal(t, ":9090", cfg.HTTPAddr())
}

func TestHTTPAddrKeepsColonPrefix(t *testing.T) {
	cfg := &Config{Port: ":7000"}
	require.Equal(t, ":7000", cfg.HTTPAddr())
}
