package model

import "time"

// CartItem is a product and quantity in a cart
type CartItem struct {
	ProductID string `json:"productId" bson:"productId"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// Cart is a user's shopping cart; its id is the owning user's id
type Cart struct {
	ID        string     `json:"id" bson:"_id"`
	Items     []CartItem `json:"items" bson:"items"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// RecordID implements store.Record
func (c Cart) RecordID() string { return c.ID }

// SetQuantity sets the quantity of a product, removing it when quantity <= 0
func (c *Cart) SetQuantity(productID string, quantity int) {
	for i, item := range c.Items {
		if item.ProductID != productID {
			continue
		}
		if quantity <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity = quantity
		}
		return
	}
	if quantity > 0 {
		c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: quantity})
	}
}

// Remove drops a product from the cart and reports whether it was present
func (c *Cart) Remove(productID string) bool {
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}
