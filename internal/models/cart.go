package models

import (
	"time"

	"gorm.io/gorm"
)

// Cart is a user's pending selection of products. Each user owns exactly
// one cart; it is created on first access.
type Cart struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string `json:"user_id" gorm:"type:varchar(36);uniqueIndex" validate:"required,uuid"`
	gorm.Model        // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// CartItem is one (product, quantity) entry in a cart. Quantity is strictly
// positive while the row exists; an update that would take it to zero or
// below deletes the row instead. The unique index keeps one row per
// (cart, product) pair so concurrent first adds collide rather than
// duplicate.
//
// No soft delete here: a removed item must actually release its slot in
// the unique index so the product can be re-added.
type CartItem struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CartID    string    `json:"cart_id" gorm:"type:varchar(36);uniqueIndex:idx_cart_product" validate:"required,uuid"`
	ProductID string    `json:"product_id" gorm:"type:varchar(36);uniqueIndex:idx_cart_product" validate:"required,uuid"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
