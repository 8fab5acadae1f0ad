package purchase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	EventCheckedOut       = "purchase.checked_out"
	EventIntentCreated    = "payment.intent_created"
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentCanceled  = "payment.canceled"
)

// ConsumedEvents are the routing keys HandleEvent understands.
var ConsumedEvents = []string{EventPaymentSucceeded, EventPaymentCanceled}

type PurchasesEvent struct {
	User        string   `json:"user"`
	PurchaseIDs []string `json:"purchase_ids"`
}

type PaymentEvent struct {
	User        string   `json:"user"`
	OrderID     string   `json:"order_id"`
	Amount      int64    `json:"amount,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	PurchaseIDs []string `json:"purchase_ids,omitempty"`
}

// HandleEvent applies a payment outcome relayed by the processor webhook:
// succeeded confirms the listed purchases, canceled cancels them.
func (s *Service) HandleEvent(ctx context.Context, eventType string, payload []byte) error {
	var apply func(ctx context.Context, user bson.ObjectID, ids []bson.ObjectID) (int64, error)
	switch eventType {
	case EventPaymentSucceeded:
		apply = s.ConfirmPurchases
	case EventPaymentCanceled:
		apply = s.CancelPurchases
	default:
		log.Printf("[purchase] ignoring event %s", eventType)
		return nil
	}

	var ev PaymentEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	user, err := bson.ObjectIDFromHex(ev.User)
	if err != nil {
		return fmt.Errorf("%s: invalid user %q", eventType, ev.User)
	}
	ids := make([]bson.ObjectID, 0, len(ev.PurchaseIDs))
	for _, raw := range ev.PurchaseIDs {
		id, err := bson.ObjectIDFromHex(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid purchase id %q", eventType, raw)
		}
		ids = append(ids, id)
	}

	n, err := apply(ctx, user, ids)
	if err != nil {
		return err
	}
	log.Printf("[purchase] %s: %d purchase(s) updated for order %s", eventType, n, ev.OrderID)
	return nil
}
