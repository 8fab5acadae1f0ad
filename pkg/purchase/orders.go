package purchase

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.opentelemetry.io/otel/attribute"

	"julianmorley.ca/con-plar/purchases/pkg/global"
	"julianmorley.ca/con-plar/purchases/pkg/models"
)

// GetPurchases lists the caller's orders, newest first. IN_CART records are
// never part of the result; use GetCart for those.
func (s *Service) GetPurchases(ctx context.Context, user bson.ObjectID, status models.PurchaseStatus) (purchases []models.PurchaseDetail, err error) {
	ctx, span := s.startSpan(ctx, "purchase.get_purchases", user)
	span.SetAttributes(attribute.String("status", status.String()))
	defer func() { endSpan(span, err) }()

	if !status.IsValid() || status == models.StatusInCart {
		return nil, global.BadRequest("invalid purchase status")
	}
	purchases, err = s.store.ListOrders(ctx, user, status)
	if err != nil {
		return nil, global.Internal("failed to list purchases", err)
	}
	return s.withImages(purchases), nil
}

// GetCart lists the caller's IN_CART records, newest first.
func (s *Service) GetCart(ctx context.Context, user bson.ObjectID) (purchases []models.PurchaseDetail, err error) {
	ctx, span := s.startSpan(ctx, "purchase.get_cart", user)
	defer func() { endSpan(span, err) }()

	purchases, err = s.store.ListCart(ctx, user)
	if err != nil {
		return nil, global.Internal("failed to list cart", err)
	}
	return s.withImages(purchases), nil
}

func (s *Service) withImages(purchases []models.PurchaseDetail) []models.PurchaseDetail {
	if purchases == nil {
		return []models.PurchaseDetail{}
	}
	for i := range purchases {
		s.images.Product(&purchases[i].Product)
	}
	return purchases
}

// DeletePurchases removes the caller's cart lines among ids. Ids that are not
// in the cart are ignored.
func (s *Service) DeletePurchases(ctx context.Context, user bson.ObjectID, rawIDs []string) (deleted int64, err error) {
	ctx, span := s.startSpan(ctx, "purchase.delete_purchases", user)
	defer func() { endSpan(span, err) }()

	ids, err := parseIDs("purchase_ids", rawIDs)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	deleted, err = s.store.DeleteInCart(ctx, user, ids)
	if err != nil {
		return 0, global.Internal("failed to delete purchases", err)
	}
	span.SetAttributes(attribute.Int64("deleted", deleted))
	return deleted, nil
}

// ConfirmPurchases marks pending purchases as confirmed.
func (s *Service) ConfirmPurchases(ctx context.Context, user bson.ObjectID, ids []bson.ObjectID) (int64, error) {
	return s.transition(ctx, user, ids, models.StatusConfirmed)
}

// CancelPurchases marks pending purchases as cancelled.
func (s *Service) CancelPurchases(ctx context.Context, user bson.ObjectID, ids []bson.ObjectID) (int64, error) {
	return s.transition(ctx, user, ids, models.StatusCancelled)
}

func (s *Service) transition(ctx context.Context, user bson.ObjectID, ids []bson.ObjectID, to models.PurchaseStatus) (n int64, err error) {
	ctx, span := s.startSpan(ctx, "purchase.transition", user)
	span.SetAttributes(attribute.String("to", to.String()))
	defer func() { endSpan(span, err) }()

	from := models.StatusWaitForConfirmation
	if !from.CanTransitionTo(to) {
		return 0, global.BadRequest("invalid status transition")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n, err = s.store.Transition(ctx, user, ids, from, to)
	if err != nil {
		return 0, global.Internal("failed to update purchase status", err)
	}
	return n, nil
}

// OrderStats aggregates the caller's non-cart purchases per status.
func (s *Service) OrderStats(ctx context.Context, user bson.ObjectID) (stats *models.OrderStats, err error) {
	ctx, span := s.startSpan(ctx, "purchase.order_stats", user)
	defer func() { endSpan(span, err) }()

	byStatus, err := s.store.OrderStats(ctx, user)
	if err != nil {
		return nil, global.Internal("failed to aggregate purchases", err)
	}
	stats = &models.OrderStats{User: user, ByStatus: byStatus}
	if stats.ByStatus == nil {
		stats.ByStatus = []models.StatusStats{}
	}
	for _, st := range byStatus {
		stats.TotalItems += st.Items
		if st.Status != models.StatusCancelled {
			stats.TotalSpent += st.TotalSpent
		}
	}
	return stats, nil
}
