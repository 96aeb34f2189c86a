package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUpstream marks failures of the WATA H2H API: non-200 responses,
// transport errors and malformed bodies.
var ErrUpstream = errors.New("payment: wata api error")

// Client talks to the WATA H2H API. Timeouts are enforced per call; a
// timed-out request is a hard failure of that invocation, never retried.
type Client struct {
	BaseURL     string
	Token       string
	HTTP        *http.Client
	LinkTimeout time.Duration
	KeyTimeout  time.Duration
}

// LinkRequest captures the information required to create a payment link.
type LinkRequest struct {
	Amount             float64
	Currency           string
	OrderID            string
	Description        string
	ExpiresAt          time.Time
	SuccessRedirectURL string
	FailRedirectURL    string
	CustomerEmail      string
	CustomerPhone      string
}

// LinkResponse is the minimal information returned when a link is created.
type LinkResponse struct {
	PaymentURL    string
	TransactionID string
}

type linkWire struct {
	Amount             float64 `json:"amount"`
	Currency           string  `json:"currency"`
	OrderID            string  `json:"orderId"`
	Description        string  `json:"description"`
	ExpirationDateTime string  `json:"expirationDateTime"`
	SuccessRedirectURL string  `json:"successRedirectUrl,omitempty"`
	FailRedirectURL    string  `json:"failRedirectUrl,omitempty"`
	CustomerEmail      string  `json:"customerEmail,omitempty"`
	CustomerPhone      string  `json:"customerPhone,omitempty"`
}

// CreateLink requests a payment link from the provider.
func (c *Client) CreateLink(ctx context.Context, req LinkRequest) (LinkResponse, error) {
	if strings.TrimSpace(c.Token) == "" {
		return LinkResponse{}, errors.New("payment: wata token not configured")
	}
	wire := linkWire{
		Amount:             req.Amount,
		Currency:           req.Currency,
		OrderID:            req.OrderID,
		Description:        req.Description,
		ExpirationDateTime: req.ExpiresAt.UTC().Format("2006-01-02T15:04:05") + "Z",
		SuccessRedirectURL: req.SuccessRedirectURL,
		FailRedirectURL:    req.FailRedirectURL,
		CustomerEmail:      req.CustomerEmail,
		CustomerPhone:      req.CustomerPhone,
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return LinkResponse{}, err
	}

	callCtx, cancel := c.callContext(ctx, c.LinkTimeout, 60*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL()+"/links", bytes.NewReader(payload))
	if err != nil {
		return LinkResponse{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return LinkResponse{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return LinkResponse{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return LinkResponse{}, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		PaymentURL string `json:"paymentUrl"`
		URL        string `json:"url"`
		ID         string `json:"id"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return LinkResponse{}, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	paymentURL := decoded.PaymentURL
	if paymentURL == "" {
		paymentURL = decoded.URL
	}
	if paymentURL == "" {
		return LinkResponse{}, fmt.Errorf("%w: response carries no payment url", ErrUpstream)
	}
	return LinkResponse{PaymentURL: paymentURL, TransactionID: decoded.ID}, nil
}

// PublicKey fetches the provider's webhook signing key in PEM form.
func (c *Client) PublicKey(ctx context.Context) (string, error) {
	callCtx, cancel := c.callContext(ctx, c.KeyTimeout, 30*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL()+"/public-key", nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: public key status %d", ErrUpstream, resp.StatusCode)
	}
	var decoded struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode public key: %v", ErrUpstream, err)
	}
	if strings.TrimSpace(decoded.Value) == "" {
		return "", fmt.Errorf("%w: empty public key", ErrUpstream)
	}
	return decoded.Value, nil
}

func (c *Client) baseURL() string {
	return strings.TrimRight(c.BaseURL, "/")
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) callContext(ctx context.Context, timeout, fallback time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = fallback
	}
	return context.WithTimeout(ctx, timeout)
}
