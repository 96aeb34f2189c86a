package payment

// WebhookEvent is the decoded WATA callback payload. Only TransactionStatus
// and OrderID drive processing; the remaining fields are optional and kept
// for logging and future settlement detail.
type WebhookEvent struct {
	TransactionID     string   `json:"transactionId"`
	OrderID           string   `json:"orderId"`
	TransactionStatus string   `json:"transactionStatus"`
	Amount            *float64 `json:"amount"`
	Currency          string   `json:"currency"`
	ErrorCode         *string  `json:"errorCode"`
	ErrorDescription  *string  `json:"errorDescription"`
	TransactionType   string   `json:"transactionType"`
	PaymentTime       *string  `json:"paymentTime"`
	TerminalName      string   `json:"terminalName"`
	TerminalPublicID  string   `json:"terminalPublicId"`
	Commission        *float64 `json:"commission"`
	Email             string   `json:"email"`
}
