package model

import (
	"math"
	"time"
)

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusCancelled = "cancelled"
)

// OrderItem is a priced line of an order. Name and price are copied from the
// catalog when the order is placed.
type OrderItem struct {
	ProductID string  `json:"productId" bson:"productId"`
	Name      string  `json:"name" bson:"name"`
	UnitPrice float64 `json:"unitPrice" bson:"unitPrice"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	LineTotal float64 `json:"lineTotal" bson:"lineTotal"`
}

// ShippingAddress is where an order is delivered
type ShippingAddress struct {
	FullName   string `json:"fullName" bson:"fullName" validate:"required"`
	Line1      string `json:"line1" bson:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty" bson:"line2,omitempty"`
	City       string `json:"city" bson:"city" validate:"required"`
	PostalCode string `json:"postalCode" bson:"postalCode" validate:"required"`
	Country    string `json:"country" bson:"country" validate:"required"`
}

// Order is a placed order. UserID is empty for guest orders.
type Order struct {
	ID              string          `json:"id" bson:"_id"`
	UserID          string          `json:"userId,omitempty" bson:"userId,omitempty"`
	Email           string          `json:"email" bson:"email"`
	Items           []OrderItem     `json:"items" bson:"items"`
	Subtotal        float64         `json:"subtotal" bson:"subtotal"`
	ShippingAddress ShippingAddress `json:"shippingAddress" bson:"shippingAddress"`
	Status          string          `json:"status" bson:"status"`
	CreatedAt       time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// RecordID implements store.Record
func (o Order) RecordID() string { return o.ID }

// IsGuest reports whether the order was placed without an account
func (o Order) IsGuest() bool { return o.UserID == "" }

// SubtotalOf sums line totals, rounded to cents
func SubtotalOf(items []OrderItem) float64 {
	var sum float64
	for _, item := range items {
		sum += item.LineTotal
	}
	return RoundCents(sum)
}

// RoundCents rounds an amount to two decimals
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
