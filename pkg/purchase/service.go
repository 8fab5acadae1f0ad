package purchase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"julianmorley.ca/con-plar/purchases/pkg/global"
	"julianmorley.ca/con-plar/purchases/pkg/images"
	"julianmorley.ca/con-plar/purchases/pkg/models"
)

// ProductFinder looks up the live catalog entry for a product id.
type ProductFinder interface {
	FindProductByID(ctx context.Context, id bson.ObjectID) (*models.Product, error)
}

// Store is the purchases collection. Every method is scoped to the owning user
// except Details, which joins already-resolved ids.
type Store interface {
	FindInCart(ctx context.Context, user, product bson.ObjectID) (*models.Purchase, error)
	// IncrementInCart adds seed.BuyCount to the user's IN_CART record for
	// seed.Product, creating it from seed when absent, in one atomic write.
	IncrementInCart(ctx context.Context, seed *models.Purchase) (*models.Purchase, error)
	SetCartBuyCount(ctx context.Context, user, product bson.ObjectID, buyCount int) (*models.Purchase, error)
	// CheckoutFromCart moves the IN_CART record to WAIT_FOR_CONFIRMATION with
	// the given count and returns the record as it was before the update.
	CheckoutFromCart(ctx context.Context, user, product bson.ObjectID, buyCount int) (*models.Purchase, error)
	Insert(ctx context.Context, p *models.Purchase) error
	Restore(ctx context.Context, p *models.Purchase) error
	Delete(ctx context.Context, user, id bson.ObjectID) error
	Details(ctx context.Context, ids []bson.ObjectID) ([]models.PurchaseDetail, error)
	ListOrders(ctx context.Context, user bson.ObjectID, status models.PurchaseStatus) ([]models.PurchaseDetail, error)
	ListCart(ctx context.Context, user bson.ObjectID) ([]models.PurchaseDetail, error)
	DeleteInCart(ctx context.Context, user bson.ObjectID, ids []bson.ObjectID) (int64, error)
	FindByIDs(ctx context.Context, user bson.ObjectID, ids []bson.ObjectID) ([]models.Purchase, error)
	Transition(ctx context.Context, user bson.ObjectID, ids []bson.ObjectID, from, to models.PurchaseStatus) (int64, error)
	OrderStats(ctx context.Context, user bson.ObjectID) ([]models.StatusStats, error)
}

// UserStore persists the payment side-channel on the user document.
type UserStore interface {
	SetPaymentMetadata(ctx context.Context, user bson.ObjectID, meta models.PaymentMetadata) error
}

// PaymentGateway is the remote payment processor.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*models.PaymentIntent, error)
	UpdateIntent(ctx context.Context, id string, amount int64) (*models.PaymentIntent, error)
}

// Publisher emits domain events. Publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

type Deps struct {
	Store    Store
	Products ProductFinder
	Users    UserStore
	Gateway  PaymentGateway
	Events   Publisher
	Images   *images.Resolver
	Currency string
	// AtomicCheckout undoes already-applied checkout items when a later item fails.
	AtomicCheckout bool
}

type Service struct {
	store          Store
	products       ProductFinder
	users          UserStore
	gateway        PaymentGateway
	events         Publisher
	images         *images.Resolver
	currency       string
	atomicCheckout bool
	tracer         trace.Tracer
	metrics        serviceMetrics
}

func NewService(deps Deps) *Service {
	currency := deps.Currency
	if currency == "" {
		currency = "usd"
	}
	resolver := deps.Images
	if resolver == nil {
		resolver = images.NewResolver("", "")
	}
	return &Service{
		store:          deps.Store,
		products:       deps.Products,
		users:          deps.Users,
		gateway:        deps.Gateway,
		events:         deps.Events,
		images:         resolver,
		currency:       currency,
		atomicCheckout: deps.AtomicCheckout,
		tracer:         otel.Tracer("purchases"),
		metrics:        newServiceMetrics(),
	}
}

type serviceMetrics struct {
	cartAdds       metric.Int64Counter
	checkouts      metric.Int64Counter
	paymentIntents metric.Int64Counter
}

func newServiceMetrics() serviceMetrics {
	meter := otel.Meter("purchases")
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			log.Printf("[purchase] metric %s disabled: %v", name, err)
			return noop.Int64Counter{}
		}
		return c
	}
	return serviceMetrics{
		cartAdds:       counter("purchases.cart_adds", "Products added to carts"),
		checkouts:      counter("purchases.checkouts", "Checkout calls by outcome"),
		paymentIntents: counter("purchases.payment_intents", "Payment intents created or updated"),
	}
}

func (s *Service) startSpan(ctx context.Context, name string, user bson.ObjectID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("user_id", user.Hex())))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// AddToCart merges buy_count into the caller's cart line for the product.
func (s *Service) AddToCart(ctx context.Context, user bson.ObjectID, item models.PurchaseItem) (detail *models.PurchaseDetail, err error) {
	ctx, span := s.startSpan(ctx, "purchase.add_to_cart", user)
	defer func() { endSpan(span, err) }()

	productID, err := parseID("product_id", item.ProductID)
	if err != nil {
		return nil, err
	}
	product, err := s.findProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.CanSupply(item.BuyCount) {
		return nil, errQuantityExceeded()
	}

	existing, err := s.store.FindInCart(ctx, user, productID)
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		return nil, global.Internal("failed to load cart", err)
	case !product.CanSupply(existing.BuyCount + item.BuyCount):
		return nil, errQuantityExceeded()
	}

	merged, err := s.store.IncrementInCart(ctx, models.NewPurchase(user, product, item.BuyCount, models.StatusInCart))
	if err != nil {
		return nil, global.Internal("failed to add to cart", err)
	}
	s.metrics.cartAdds.Add(ctx, int64(item.BuyCount))
	return s.detail(ctx, merged.ID)
}

// UpdatePurchase overwrites the quantity of an existing cart line.
func (s *Service) UpdatePurchase(ctx context.Context, user bson.ObjectID, item models.PurchaseItem) (detail *models.PurchaseDetail, err error) {
	ctx, span := s.startSpan(ctx, "purchase.update_purchase", user)
	defer func() { endSpan(span, err) }()

	productID, err := parseID("product_id", item.ProductID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.FindInCart(ctx, user, productID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, global.NotFound("purchase not found")
	}
	if err != nil {
		return nil, global.Internal("failed to load cart", err)
	}
	product, err := s.findProduct(ctx, existing.Product)
	if err != nil {
		return nil, err
	}
	if !product.CanSupply(item.BuyCount) {
		return nil, errQuantityExceeded()
	}

	updated, err := s.store.SetCartBuyCount(ctx, user, productID, item.BuyCount)
	if errors.Is(err, models.ErrNotFound) {
		return nil, global.NotFound("purchase not found")
	}
	if err != nil {
		return nil, global.Internal("failed to update purchase", err)
	}
	return s.detail(ctx, updated.ID)
}

// undo reverts one applied checkout item.
type undo func(ctx context.Context) error

// BuyProducts moves the given products to WAIT_FOR_CONFIRMATION, one item at
// a time and in input order. Items applied before a failing item stay applied
// unless AtomicCheckout is set.
func (s *Service) BuyProducts(ctx context.Context, user bson.ObjectID, items []models.PurchaseItem) (details []models.PurchaseDetail, err error) {
	ctx, span := s.startSpan(ctx, "purchase.buy_products", user)
	span.SetAttributes(attribute.Int("items", len(items)))
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		s.metrics.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		endSpan(span, err)
	}()

	if len(items) == 0 {
		return nil, global.BadRequest("no products to buy")
	}

	ids := make([]bson.ObjectID, 0, len(items))
	var undos []undo
	for i, item := range items {
		id, u, err := s.checkoutItem(ctx, user, item)
		if err != nil {
			if s.atomicCheckout {
				s.compensate(ctx, undos)
			}
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		ids = append(ids, id)
		undos = append(undos, u)
	}

	details, err = s.store.Details(ctx, ids)
	if err != nil {
		return nil, global.Internal("failed to load purchases", err)
	}
	s.publish(ctx, EventCheckedOut, PurchasesEvent{User: user.Hex(), PurchaseIDs: hexIDs(ids)})
	return details, nil
}

func (s *Service) checkoutItem(ctx context.Context, user bson.ObjectID, item models.PurchaseItem) (bson.ObjectID, undo, error) {
	productID, err := parseID("product_id", item.ProductID)
	if err != nil {
		return bson.ObjectID{}, nil, err
	}
	product, err := s.findProduct(ctx, productID)
	if err != nil {
		return bson.ObjectID{}, nil, err
	}
	if !product.CanSupply(item.BuyCount) {
		return bson.ObjectID{}, nil, errQuantityExceeded()
	}

	before, err := s.store.CheckoutFromCart(ctx, user, productID, item.BuyCount)
	if err == nil {
		return before.ID, s.restoreToCart(before), nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return bson.ObjectID{}, nil, global.Internal("failed to check out cart item", err)
	}

	created := models.NewPurchase(user, product, item.BuyCount, models.StatusWaitForConfirmation)
	if err := s.store.Insert(ctx, created); err != nil {
		return bson.ObjectID{}, nil, global.Internal("failed to create purchase", err)
	}
	return created.ID, func(ctx context.Context) error { return s.store.Delete(ctx, user, created.ID) }, nil
}

// restoreToCart puts a checked-out line back into the cart. If the user added
// a new cart line for the product in the meantime, the old count is folded
// into that line and the checked-out record is removed.
func (s *Service) restoreToCart(before *models.Purchase) undo {
	return func(ctx context.Context) error {
		err := s.store.Restore(ctx, before)
		if !errors.Is(err, models.ErrCartLineExists) {
			return err
		}
		seed := *before
		seed.ID = bson.NewObjectID()
		if _, err := s.store.IncrementInCart(ctx, &seed); err != nil {
			return err
		}
		return s.store.Delete(ctx, before.User, before.ID)
	}
}

// compensate runs undos newest first. Failures are logged; the caller already
// has the error that triggered compensation.
func (s *Service) compensate(ctx context.Context, undos []undo) {
	for i := len(undos) - 1; i >= 0; i-- {
		if err := undos[i](ctx); err != nil {
			log.Printf("[purchase] checkout compensation step %d failed: %v", i, err)
		}
	}
}

func (s *Service) findProduct(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	product, err := s.products.FindProductByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, global.NotFound("product not found")
	}
	if err != nil {
		return nil, global.Internal("failed to load product", err)
	}
	return product, nil
}

func (s *Service) detail(ctx context.Context, id bson.ObjectID) (*models.PurchaseDetail, error) {
	details, err := s.store.Details(ctx, []bson.ObjectID{id})
	if err != nil {
		return nil, global.Internal("failed to load purchase", err)
	}
	if len(details) == 0 {
		return nil, global.NotFound("purchase not found")
	}
	return &details[0], nil
}

func (s *Service) publish(ctx context.Context, eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		log.Printf("[purchase] publish %s failed: %v", eventType, err)
	}
}

func errQuantityExceeded() *global.AppError {
	return global.NotAcceptable("buy_count exceeds available quantity")
}

func parseID(field, raw string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return bson.ObjectID{}, global.Unprocessable("invalid "+field, map[string]string{field: "must be a valid id"})
	}
	return id, nil
}

func parseIDs(field string, raws []string) ([]bson.ObjectID, error) {
	ids := make([]bson.ObjectID, 0, len(raws))
	for _, raw := range raws {
		id, err := parseID(field, raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func hexIDs(ids []bson.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}
