package services

import (
	"fmt"

	"archives/internal/models"
	"archives/internal/repositories"
)

// CartService handles business logic for carts and their items.
//
// Stock is checked at every mutation but never held: there is no
// reservation lock for the lifetime of a cart, so stock can drop after an
// item was accepted. ValidateStock exists to detect exactly that.
type CartService struct {
	carts     repositories.CartRepository
	products  repositories.ProductRepository
	inventory *InventoryService
	cartLocks keyedMutex
}

// NewCartService creates a new CartService.
func NewCartService(carts repositories.CartRepository, products repositories.ProductRepository, inventory *InventoryService) *CartService {
	return &CartService{
		carts:     carts,
		products:  products,
		inventory: inventory,
	}
}

// GetOrCreateCart returns the user's cart, creating it on first access.
func (s *CartService) GetOrCreateCart(userID string) (*models.Cart, error) {
	return s.carts.GetOrCreateByUser(userID)
}

// GetItems returns all items in a cart.
func (s *CartService) GetItems(cartID string) ([]models.CartItem, error) {
	return s.carts.GetItems(cartID)
}

// AddItem adds quantity units of a product to a cart, creating the item or
// topping up an existing one. The resulting total quantity must fit in the
// currently available stock; on violation the returned
// InsufficientStockError carries the remaining headroom (full stock for a
// new item, stock minus what the cart already holds for a top-up). Returns
// the resulting item and its subtotal at the current unit price.
func (s *CartService) AddItem(cartID, productID string, quantity int) (*models.CartItem, float64, error) {
	if quantity <= 0 {
		return nil, 0, fmt.Errorf("quantity must be a positive integer: %w", ErrInvalidInput)
	}

	unlock := s.cartLocks.lock(cartID)
	defer unlock()

	product, err := s.products.GetByID(productID)
	if err != nil {
		return nil, 0, err
	}
	available, err := s.inventory.Available(productID)
	if err != nil {
		return nil, 0, err
	}

	item, err := s.carts.GetItem(cartID, productID)
	switch {
	case err == nil:
		newQuantity := item.Quantity + quantity
		if newQuantity > available {
			return nil, 0, &InsufficientStockError{Available: available - item.Quantity}
		}
		item.Quantity = newQuantity
		if err := s.carts.UpdateItem(item); err != nil {
			return nil, 0, err
		}
	case isNotFound(err):
		if quantity > available {
			return nil, 0, &InsufficientStockError{Available: available}
		}
		item = &models.CartItem{CartID: cartID, ProductID: productID, Quantity: quantity}
		if err := s.carts.CreateItem(item); err != nil {
			return nil, 0, err
		}
	default:
		return nil, 0, err
	}

	return item, float64(item.Quantity) * product.Price, nil
}

// UpdateItem sets an item's quantity to exactly the given value. A
// quantity of zero or below deletes the item; this is documented policy,
// not an error, and the removed return reports it. A quantity above the
// current stock fails with the full stock as headroom, since the new value
// replaces rather than adds.
func (s *CartService) UpdateItem(cartID, productID string, quantity int) (item *models.CartItem, removed bool, err error) {
	unlock := s.cartLocks.lock(cartID)
	defer unlock()

	item, err = s.carts.GetItem(cartID, productID)
	if err != nil {
		return nil, false, err
	}

	if quantity <= 0 {
		if err := s.carts.DeleteItem(cartID, productID); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	available, err := s.inventory.Available(productID)
	if err != nil {
		return nil, false, err
	}
	if quantity > available {
		return nil, false, &InsufficientStockError{Available: available}
	}

	item.Quantity = quantity
	if err := s.carts.UpdateItem(item); err != nil {
		return nil, false, err
	}
	return item, false, nil
}

// RemoveItem deletes the item for a (cart, product) pair.
func (s *CartService) RemoveItem(cartID, productID string) error {
	unlock := s.cartLocks.lock(cartID)
	defer unlock()

	return s.carts.DeleteItem(cartID, productID)
}

// Clear removes all items from a cart. Clearing an empty cart succeeds.
func (s *CartService) Clear(cartID string) error {
	unlock := s.cartLocks.lock(cartID)
	defer unlock()

	return s.carts.ClearItems(cartID)
}

// StockViolation describes a cart item whose quantity now exceeds the
// product's current stock.
type StockViolation struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// ValidateStock scans a cart and reports every item whose quantity exceeds
// current stock. Stock can drop after an item was added, so a cart that was
// valid at every mutation can still fail here. Violations are reported,
// never auto-corrected; remediation is the caller's call.
func (s *CartService) ValidateStock(cartID string) ([]StockViolation, error) {
	items, err := s.carts.GetItems(cartID)
	if err != nil {
		return nil, err
	}

	var violations []StockViolation
	for _, item := range items {
		product, err := s.products.GetByID(item.ProductID)
		if err != nil {
			return nil, err
		}
		if item.Quantity > product.Stock {
			violations = append(violations, StockViolation{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   item.Quantity,
				Available:   product.Stock,
			})
		}
	}
	return violations, nil
}

// Subtotal computes an item's cost at the current unit price.
func (s *CartService) Subtotal(item *models.CartItem) (float64, error) {
	product, err := s.products.GetByID(item.ProductID)
	if err != nil {
		return 0, err
	}
	return float64(item.Quantity) * product.Price, nil
}

// Total sums quantity times current unit price over all items in a cart.
// It is computed fresh on every call; prices are never snapshotted.
func (s *CartService) Total(cartID string) (float64, error) {
	items, err := s.carts.GetItems(cartID)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, item := range items {
		product, err := s.products.GetByID(item.ProductID)
		if err != nil {
			return 0, err
		}
		total += float64(item.Quantity) * product.Price
	}
	return total, nil
}
