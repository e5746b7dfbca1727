package repositories

import (
	"archives/internal/models"
)

// CartRepository defines the interface for cart and cart item data access.
//
// CreateItem must fail with ErrConflict when a row for the same
// (cart, product) pair already exists, so that two concurrent first adds
// cannot both insert.
type CartRepository interface {
	// GetOrCreateByUser returns the user's cart, creating it on first access.
	GetOrCreateByUser(userID string) (*models.Cart, error)
	GetByID(id string) (*models.Cart, error)
	GetItems(cartID string) ([]models.CartItem, error)
	GetItem(cartID, productID string) (*models.CartItem, error)
	CreateItem(item *models.CartItem) error
	UpdateItem(item *models.CartItem) error
	DeleteItem(cartID, productID string) error
	ClearItems(cartID string) error
}
