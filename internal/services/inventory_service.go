package services

import (
	"archives/internal/repositories"
)

// InventoryService answers reservation-capacity questions about product
// stock. It is read-only: stock is decremented by order fulfillment, not
// here. Cart mutations consult it before accepting a quantity.
type InventoryService struct {
	products repositories.ProductRepository
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(products repositories.ProductRepository) *InventoryService {
	return &InventoryService{
		products: products,
	}
}

// Available returns the current stock count for a product.
func (s *InventoryService) Available(productID string) (int, error) {
	product, err := s.products.GetByID(productID)
	if err != nil {
		return 0, err
	}
	return product.Stock, nil
}

// CanReserve reports whether requested units of a product could be
// reserved right now. No hold is taken; the answer can be stale by the
// time the caller acts on it.
func (s *InventoryService) CanReserve(productID string, requested int) (bool, error) {
	available, err := s.Available(productID)
	if err != nil {
		return false, err
	}
	return requested <= available, nil
}
