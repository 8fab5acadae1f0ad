package purchase

import (
	"context"
	"encoding/json"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"julianmorley.ca/con-plar/purchases/pkg/global"
	"julianmorley.ca/con-plar/purchases/pkg/models"
)

// CreatePaymentIntent prices the referenced purchases from the store and opens
// a remote payment intent for that amount. The intent is cached on the user,
// replacing any earlier one.
func (s *Service) CreatePaymentIntent(ctx context.Context, user bson.ObjectID, refs []models.PurchaseRef) (result *models.PaymentIntentResult, err error) {
	ctx, span := s.startSpan(ctx, "purchase.create_payment_intent", user)
	defer func() { endSpan(span, err) }()

	if len(refs) == 0 {
		return nil, global.BadRequest("no purchases to checkout")
	}
	total, err := s.total(ctx, user, refs)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("amount", total))

	intent, err := s.gateway.CreateIntent(ctx, total, s.currency, map[string]string{"user_id": user.Hex()})
	if err != nil {
		return nil, gatewayError(err)
	}
	s.metrics.paymentIntents.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "create")))

	meta := models.PaymentMetadata{
		ClientSecret: intent.ClientSecret,
		OrderID:      intent.ID,
		Status:       intent.Status,
	}
	if err := s.users.SetPaymentMetadata(ctx, user, meta); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, global.Unauthorized("user not found")
		}
		return nil, global.Internal("failed to save payment intent", err)
	}

	s.publish(ctx, EventIntentCreated, PaymentEvent{
		User:     user.Hex(),
		OrderID:  intent.ID,
		Amount:   total,
		Currency: s.currency,
	})
	return &models.PaymentIntentResult{ClientSecret: intent.ClientSecret, OrderID: intent.ID}, nil
}

// UpdatePaymentIntent re-prices the referenced purchases and moves the remote
// intent orderID to the new amount. The processor's intent object is returned as-is.
func (s *Service) UpdatePaymentIntent(ctx context.Context, user bson.ObjectID, refs []models.PurchaseRef, orderID string) (raw json.RawMessage, err error) {
	ctx, span := s.startSpan(ctx, "purchase.update_payment_intent", user)
	span.SetAttributes(attribute.String("order_id", orderID))
	defer func() { endSpan(span, err) }()

	if len(refs) == 0 || orderID == "" {
		return nil, global.BadRequest("selectedPurchases and orderId are required")
	}
	total, err := s.total(ctx, user, refs)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("amount", total))

	intent, err := s.gateway.UpdateIntent(ctx, orderID, total)
	if err != nil {
		return nil, gatewayError(err)
	}
	s.metrics.paymentIntents.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "update")))

	if len(intent.Raw) > 0 {
		return intent.Raw, nil
	}
	raw, err = json.Marshal(intent)
	if err != nil {
		return nil, global.Internal("failed to encode payment intent", err)
	}
	return raw, nil
}

// total sums price * buy_count over the stored records behind refs. Prices
// sent by the client are never read.
func (s *Service) total(ctx context.Context, user bson.ObjectID, refs []models.PurchaseRef) (int64, error) {
	ids := make([]bson.ObjectID, 0, len(refs))
	for _, ref := range refs {
		id, err := bson.ObjectIDFromHex(ref.ID)
		if err != nil {
			return 0, global.BadRequest("invalid purchase id")
		}
		ids = append(ids, id)
	}
	stored, err := s.store.FindByIDs(ctx, user, ids)
	if err != nil {
		return 0, global.Internal("failed to load purchases", err)
	}
	if len(stored) == 0 {
		return 0, global.BadRequest("no matching purchases")
	}
	var total int64
	for i := range stored {
		total += stored[i].Subtotal()
	}
	return total, nil
}

func gatewayError(err error) error {
	var appErr *global.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return global.Internal("payment processor error", err)
}
