package models

import "encoding/json"

// PaymentIntent is the subset of the processor's intent object this service reads.
// Raw keeps the full remote body for callers that must see it verbatim.
type PaymentIntent struct {
	ID           string          `json:"id"`
	ClientSecret string          `json:"client_secret"`
	Amount       int64           `json:"amount"`
	Currency     string          `json:"currency"`
	Status       string          `json:"status"`
	Raw          json.RawMessage `json:"-"`
}

// PaymentIntentResult is returned to the client after creating an intent.
type PaymentIntentResult struct {
	ClientSecret string `json:"clientSecret"`
	OrderID      string `json:"orderId"`
}
