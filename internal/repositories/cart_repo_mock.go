package repositories

import (
	"fmt"
	"sync"

	"archives/internal/models"

	"github.com/google/uuid"
)

// MockCartRepository is an in-memory implementation of CartRepository.
type MockCartRepository struct {
	carts map[string]models.Cart                // cart ID -> cart
	items map[string]map[string]models.CartItem // cart ID -> product ID -> item
	mu    sync.RWMutex
}

// NewMockCartRepository creates a new instance of MockCartRepository.
func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{
		carts: make(map[string]models.Cart),
		items: make(map[string]map[string]models.CartItem),
	}
}

// GetOrCreateByUser returns the user's cart, creating it on first access.
func (r *MockCartRepository) GetOrCreateByUser(userID string) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cart := range r.carts {
		if cart.UserID == userID {
			c := cart
			return &c, nil
		}
	}
	cart := models.Cart{ID: uuid.New().String(), UserID: userID}
	r.carts[cart.ID] = cart
	r.items[cart.ID] = make(map[string]models.CartItem)
	return &cart, nil
}

// GetByID returns a cart by its ID.
func (r *MockCartRepository) GetByID(id string) (*models.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[id]
	if !ok {
		return nil, fmt.Errorf("cart with ID %s: %w", id, ErrNotFound)
	}
	return &cart, nil
}

// GetItems returns all items in a cart.
func (r *MockCartRepository) GetItems(cartID string) ([]models.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	itemList := make([]models.CartItem, 0, len(r.items[cartID]))
	for _, item := range r.items[cartID] {
		itemList = append(itemList, item)
	}
	return itemList, nil
}

// GetItem returns the item for a (cart, product) pair.
func (r *MockCartRepository) GetItem(cartID, productID string) (*models.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[cartID][productID]
	if !ok {
		return nil, fmt.Errorf("item for product %s in cart %s: %w", productID, cartID, ErrNotFound)
	}
	return &item, nil
}

// CreateItem inserts a new cart item, failing with ErrConflict if the
// (cart, product) pair is already present.
func (r *MockCartRepository) CreateItem(item *models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if r.items[item.CartID] == nil {
		r.items[item.CartID] = make(map[string]models.CartItem)
	}
	if _, exists := r.items[item.CartID][item.ProductID]; exists {
		return fmt.Errorf("item for product %s in cart %s already exists: %w", item.ProductID, item.CartID, ErrConflict)
	}
	r.items[item.CartID][item.ProductID] = *item
	return nil
}

// UpdateItem saves an existing cart item.
func (r *MockCartRepository) UpdateItem(item *models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.CartID][item.ProductID]; !ok {
		return fmt.Errorf("cart item with ID %s: %w", item.ID, ErrNotFound)
	}
	r.items[item.CartID][item.ProductID] = *item
	return nil
}

// DeleteItem removes the item for a (cart, product) pair.
func (r *MockCartRepository) DeleteItem(cartID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[cartID][productID]; !ok {
		return fmt.Errorf("item for product %s in cart %s: %w", productID, cartID, ErrNotFound)
	}
	delete(r.items[cartID], productID)
	return nil
}

// ClearItems removes all items from a cart.
func (r *MockCartRepository) ClearItems(cartID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[cartID] = make(map[string]models.CartItem)
	return nil
}
