package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// PaymentMetadata caches the latest in-flight payment intent of a user.
// It is overwritten on every intent creation.
type PaymentMetadata struct {
	ClientSecret string `json:"client_secret" bson:"client_secret"`
	OrderID      string `json:"order_id" bson:"order_id"`
	Status       string `json:"status" bson:"status"`
}

// User represents a shopper account
type User struct {
	ID          bson.ObjectID    `bson:"_id,omitempty" json:"_id"`
	Email       string           `bson:"email" json:"email"`
	Password    string           `bson:"password" json:"-"` // Never expose in JSON
	Name        string           `bson:"name,omitempty" json:"name,omitempty"`
	Phone       string           `bson:"phone,omitempty" json:"phone,omitempty"`
	Address     string           `bson:"address,omitempty" json:"address,omitempty"`
	Avatar      string           `bson:"avatar,omitempty" json:"avatar,omitempty"`
	DateOfBirth *time.Time       `bson:"date_of_birth,omitempty" json:"date_of_birth,omitempty"`
	Roles       []string         `bson:"roles" json:"roles"`
	Metadata    *PaymentMetadata `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt   time.Time        `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time        `bson:"updated_at" json:"updatedAt"`
}

// UpdateMeRequest is a partial profile update. Password must be the current
// one whenever NewPassword is set.
type UpdateMeRequest struct {
	Name        *string    `json:"name" binding:"omitempty,max=160"`
	Phone       *string    `json:"phone" binding:"omitempty,max=20"`
	Address     *string    `json:"address" binding:"omitempty,max=160"`
	Avatar      *string    `json:"avatar" binding:"omitempty,max=1000"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Password    string     `json:"password" binding:"omitempty,min=6,max=160"`
	NewPassword string     `json:"new_password" binding:"omitempty,min=6,max=160"`
}

// UserUpdate holds the fields that will be $set on the user document.
type UserUpdate struct {
	Name        *string    `bson:"name,omitempty"`
	Phone       *string    `bson:"phone,omitempty"`
	Address     *string    `bson:"address,omitempty"`
	Avatar      *string    `bson:"avatar,omitempty"`
	DateOfBirth *time.Time `bson:"date_of_birth,omitempty"`
	Password    string     `bson:"password,omitempty"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}
