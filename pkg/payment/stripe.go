package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"julianmorley.ca/con-plar/purchases/pkg/models"
)

// APIError is an error body returned by the Stripe API.
type APIError struct {
	Status  int
	Type    string
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe: %s (%s)", e.Message, e.Code)
	}
	return "stripe: " + e.Message
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// StripeGateway talks to the Stripe payment intents API over plain REST.
type StripeGateway struct {
	client *resty.Client
}

func NewStripeGateway(baseURL, secretKey string) *StripeGateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(secretKey).
		SetTimeout(15*time.Second).
		SetHeader("Accept", "application/json")
	return &StripeGateway{client: client}
}

// CreateIntent opens a payment intent for amount, in minor units of currency.
func (g *StripeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*models.PaymentIntent, error) {
	form := map[string]string{
		"amount":                             strconv.FormatInt(amount, 10),
		"currency":                           currency,
		"automatic_payment_methods[enabled]": "true",
	}
	for k, v := range metadata {
		form["metadata["+k+"]"] = v
	}
	return g.post(ctx, "/v1/payment_intents", form, uuid.NewString())
}

// UpdateIntent changes the amount of an existing intent.
func (g *StripeGateway) UpdateIntent(ctx context.Context, id string, amount int64) (*models.PaymentIntent, error) {
	form := map[string]string{"amount": strconv.FormatInt(amount, 10)}
	return g.post(ctx, "/v1/payment_intents/"+url.PathEscape(id), form, "")
}

func (g *StripeGateway) post(ctx context.Context, path string, form map[string]string, idempotencyKey string) (*models.PaymentIntent, error) {
	req := g.client.R().SetContext(ctx).SetFormData(form)
	if idempotencyKey != "" {
		req.SetHeader("Idempotency-Key", idempotencyKey)
	}

	resp, err := req.Post(path)
	if err != nil {
		return nil, fmt.Errorf("stripe request %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, decodeError(resp)
	}

	var intent models.PaymentIntent
	if err := json.Unmarshal(resp.Body(), &intent); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	intent.Raw = json.RawMessage(resp.Body())
	return &intent, nil
}

func decodeError(resp *resty.Response) error {
	apiErr := &APIError{Status: resp.StatusCode(), Message: resp.Status()}
	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error.Message != "" {
		apiErr.Type = body.Error.Type
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	return apiErr
}
