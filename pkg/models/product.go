package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Category groups products in the catalog
type Category struct {
	ID   bson.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name string        `json:"name" bson:"name"`
}

// Product is the read-only view of a catalog entry this service needs:
// prices to snapshot and the quantity currently available.
type Product struct {
	ID                  bson.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name                string        `json:"name" bson:"name"`
	Image               string        `json:"image" bson:"image"`
	Images              []string      `json:"images" bson:"images"`
	Price               int64         `json:"price" bson:"price"`
	PriceBeforeDiscount int64         `json:"price_before_discount" bson:"price_before_discount"`
	Quantity            int           `json:"quantity" bson:"quantity"`
	Sold                int           `json:"sold" bson:"sold"`
	Category            bson.ObjectID `json:"category" bson:"category"`
	CreatedAt           time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt           time.Time     `json:"updatedAt" bson:"updated_at"`
}

// CanSupply reports whether count units fit in the available stock.
func (p *Product) CanSupply(count int) bool {
	return count <= p.Quantity
}

// ProductDetail is a product with its category document joined in.
type ProductDetail struct {
	ID                  bson.ObjectID `json:"_id" bson:"_id"`
	Name                string        `json:"name" bson:"name"`
	Image               string        `json:"image" bson:"image"`
	Images              []string      `json:"images" bson:"images"`
	Price               int64         `json:"price" bson:"price"`
	PriceBeforeDiscount int64         `json:"price_before_discount" bson:"price_before_discount"`
	Quantity            int           `json:"quantity" bson:"quantity"`
	Sold                int           `json:"sold" bson:"sold"`
	Category            *Category     `json:"category,omitempty" bson:"category,omitempty"`
	CreatedAt           time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt           time.Time     `json:"updatedAt" bson:"updated_at"`
}
