package repositories

import (
	"errors"
	"fmt"
	"strings"

	"archives/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{
		db: db,
	}
}

// GetOrCreateByUser returns the user's cart, creating it if this is the
// first access. A concurrent creator losing the insert race falls back to
// reading the winner's row.
func (r *GORMCartRepository) GetOrCreateByUser(userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.First(&cart, "user_id = ?", userID).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get cart for user %s: %w", userID, err)
	}

	cart = models.Cart{ID: uuid.New().String(), UserID: userID}
	if createErr := r.db.Create(&cart).Error; createErr != nil {
		if isDuplicateKey(createErr) {
			// Another request created the cart first; use theirs.
			if err := r.db.First(&cart, "user_id = ?", userID).Error; err != nil {
				return nil, fmt.Errorf("failed to get cart for user %s after conflict: %w", userID, err)
			}
			return &cart, nil
		}
		return nil, fmt.Errorf("failed to create cart for user %s: %w", userID, createErr)
	}
	return &cart, nil
}

// GetByID retrieves a cart by its ID.
func (r *GORMCartRepository) GetByID(id string) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.First(&cart, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cart by ID %s: %w", id, err)
	}
	return &cart, nil
}

// GetItems returns all items in a cart.
func (r *GORMCartRepository) GetItems(cartID string) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.Find(&items, "cart_id = ?", cartID).Error; err != nil {
		return nil, fmt.Errorf("failed to get items for cart %s: %w", cartID, err)
	}
	return items, nil
}

// GetItem returns the item for a (cart, product) pair.
func (r *GORMCartRepository) GetItem(cartID, productID string) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.First(&item, "cart_id = ? AND product_id = ?", cartID, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("item for product %s in cart %s: %w", productID, cartID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get item for product %s in cart %s: %w", productID, cartID, err)
	}
	return &item, nil
}

// CreateItem inserts a new cart item. The unique index on (cart, product)
// turns a concurrent duplicate insert into ErrConflict.
func (r *GORMCartRepository) CreateItem(item *models.CartItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if err := r.db.Create(item).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("item for product %s in cart %s already exists: %w", item.ProductID, item.CartID, ErrConflict)
		}
		return fmt.Errorf("failed to create cart item: %w", err)
	}
	return nil
}

// UpdateItem saves an existing cart item.
func (r *GORMCartRepository) UpdateItem(item *models.CartItem) error {
	res := r.db.Save(item)
	if res.Error != nil {
		return fmt.Errorf("failed to update cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart item with ID %s: %w", item.ID, ErrNotFound)
	}
	return nil
}

// DeleteItem removes the item for a (cart, product) pair.
func (r *GORMCartRepository) DeleteItem(cartID, productID string) error {
	res := r.db.Delete(&models.CartItem{}, "cart_id = ? AND product_id = ?", cartID, productID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete item for product %s in cart %s: %w", productID, cartID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("item for product %s in cart %s: %w", productID, cartID, ErrNotFound)
	}
	return nil
}

// ClearItems removes all items from a cart. Clearing an empty cart is not
// an error.
func (r *GORMCartRepository) ClearItems(cartID string) error {
	if err := r.db.Delete(&models.CartItem{}, "cart_id = ?", cartID).Error; err != nil {
		return fmt.Errorf("failed to clear cart %s: %w", cartID, err)
	}
	return nil
}

// isDuplicateKey reports whether err is a unique-constraint violation.
// GORM only translates these with TranslateError enabled, so we also match
// the driver message for the SQLite and Postgres drivers we ship with.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
