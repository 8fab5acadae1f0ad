package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

//go:generate go tool stringer -type=PurchaseStatus -linecomment

// PurchaseStatus is stored as an integer so the query string can carry it as-is.
type PurchaseStatus int

const (
	StatusInCart              PurchaseStatus = -1 // IN_CART
	StatusAll                 PurchaseStatus = 0  // ALL
	StatusWaitForConfirmation PurchaseStatus = 1  // WAIT_FOR_CONFIRMATION
	StatusConfirmed           PurchaseStatus = 2  // CONFIRMED
	StatusCancelled           PurchaseStatus = 3  // CANCELLED
)

// ParsePurchaseStatus parses the numeric status used by the list endpoint.
// An empty value means StatusAll.
func ParsePurchaseStatus(raw string) (PurchaseStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return StatusAll, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid purchase status %q", raw)
	}
	status := PurchaseStatus(n)
	if !status.IsValid() {
		return 0, fmt.Errorf("unknown purchase status %d", n)
	}
	return status, nil
}

func (s PurchaseStatus) IsValid() bool {
	return s >= StatusInCart && s <= StatusCancelled
}

// IsStored reports whether the status may be persisted on a record.
func (s PurchaseStatus) IsStored() bool {
	return s.IsValid() && s != StatusAll
}

// CanTransitionTo encodes the purchase lifecycle. Nothing moves back into the cart.
func (s PurchaseStatus) CanTransitionTo(next PurchaseStatus) bool {
	switch s {
	case StatusInCart:
		return next == StatusWaitForConfirmation
	case StatusWaitForConfirmation:
		return next == StatusConfirmed || next == StatusCancelled
	default:
		return false
	}
}

// Purchase is one cart line or order line as stored in the purchases collection.
type Purchase struct {
	ID                  bson.ObjectID  `json:"_id" bson:"_id,omitempty"`
	User                bson.ObjectID  `json:"user" bson:"user"`
	Product             bson.ObjectID  `json:"product" bson:"product"`
	BuyCount            int            `json:"buy_count" bson:"buy_count"`
	Price               int64          `json:"price" bson:"price"` // minor units, snapshot at add time
	PriceBeforeDiscount int64          `json:"price_before_discount" bson:"price_before_discount"`
	Status              PurchaseStatus `json:"status" bson:"status"`
	CreatedAt           time.Time      `json:"createdAt" bson:"created_at"`
	UpdatedAt           time.Time      `json:"updatedAt" bson:"updated_at"`
}

// NewPurchase snapshots the product's current prices onto a fresh record.
func NewPurchase(user bson.ObjectID, product *Product, buyCount int, status PurchaseStatus) *Purchase {
	p := &Purchase{
		ID:                  bson.NewObjectID(),
		User:                user,
		Product:             product.ID,
		BuyCount:            buyCount,
		Price:               product.Price,
		PriceBeforeDiscount: product.PriceBeforeDiscount,
		Status:              status,
	}
	p.SetTimestamps()
	return p
}

// SetTimestamps sets created_at on first call and always updates updated_at
func (p *Purchase) SetTimestamps() {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// Subtotal is price * buy_count in minor units.
func (p *Purchase) Subtotal() int64 {
	return p.Price * int64(p.BuyCount)
}

// PurchaseDetail is a purchase with its product (and the product's category) joined in.
type PurchaseDetail struct {
	ID                  bson.ObjectID  `json:"_id" bson:"_id"`
	User                bson.ObjectID  `json:"user" bson:"user"`
	Product             ProductDetail  `json:"product" bson:"product"`
	BuyCount            int            `json:"buy_count" bson:"buy_count"`
	Price               int64          `json:"price" bson:"price"`
	PriceBeforeDiscount int64          `json:"price_before_discount" bson:"price_before_discount"`
	Status              PurchaseStatus `json:"status" bson:"status"`
	CreatedAt           time.Time      `json:"createdAt" bson:"created_at"`
	UpdatedAt           time.Time      `json:"updatedAt" bson:"updated_at"`
}

// PurchaseItem is one (product, quantity) pair of an add/update/checkout request.
type PurchaseItem struct {
	ProductID string `json:"product_id" binding:"required"`
	BuyCount  int    `json:"buy_count" binding:"required,min=1"`
}

// PurchaseRef identifies a purchase inside a payment request. Any other fields
// the client sends (price, buy_count) are ignored on purpose.
type PurchaseRef struct {
	ID string `json:"_id"`
}

type CreatePaymentIntentRequest struct {
	SelectedPurchases []PurchaseRef `json:"selectedPurchases"`
}

type UpdatePaymentIntentRequest struct {
	SelectedPurchases []PurchaseRef `json:"selectedPurchases"`
	OrderID           string        `json:"orderId"`
}

// StatusStats aggregates a user's purchases for one status.
type StatusStats struct {
	Status     PurchaseStatus `json:"status" bson:"_id"`
	Count      int            `json:"count" bson:"count"`
	Items      int            `json:"items" bson:"items"`
	TotalSpent int64          `json:"total_spent" bson:"total_spent"`
}

// OrderStats summarises the non-cart purchases of one user.
type OrderStats struct {
	User       bson.ObjectID `json:"user"`
	ByStatus   []StatusStats `json:"by_status"`
	TotalItems int           `json:"total_items"`
	TotalSpent int64         `json:"total_spent"`
}
