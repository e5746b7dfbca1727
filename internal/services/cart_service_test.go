package services_test

import (
	"testing"

	"archives/internal/models"
	"archives/internal/repositories"
	"archives/internal/services"

	"github.com/stretchr/testify/assert"
)

// newCartFixture wires a cart service against in-memory repositories with
// one seeded product, returning the service, the cart, the product, and
// the product repository for stock manipulation.
func newCartFixture(t *testing.T, stock int, price float64) (*services.CartService, *models.Cart, *models.Product, repositories.ProductRepository) {
	t.Helper()

	productRepo := repositories.NewMockProductRepository()
	cartRepo := repositories.NewMockCartRepository()

	product := &models.Product{Name: "Test Lamp", Price: price, Stock: stock}
	assert.NoError(t, productRepo.Create(product))

	inventory := services.NewInventoryService(productRepo)
	cartService := services.NewCartService(cartRepo, productRepo, inventory)

	cart, err := cartService.GetOrCreateCart("user-1")
	assert.NoError(t, err)

	return cartService, cart, product, productRepo
}

func TestCartService_AddItem(t *testing.T) {
	cartService, cart, product, _ := newCartFixture(t, 10, 25.0)

	// First add creates the item and prices it at qty * unit price.
	item, subtotal, err := cartService.AddItem(cart.ID, product.ID, 4)
	assert.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)
	assert.Equal(t, 100.0, subtotal)

	// Topping up beyond stock reports the remaining headroom, not the
	// full stock: 10 in stock minus 4 in the cart leaves 6.
	_, _, err = cartService.AddItem(cart.ID, product.ID, 8)
	var stockErr *services.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Available)

	// The failed add left the cart untouched.
	items, err := cartService.GetItems(cart.ID)
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Quantity)

	// A top-up that fits accumulates.
	item, subtotal, err = cartService.AddItem(cart.ID, product.ID, 6)
	assert.NoError(t, err)
	assert.Equal(t, 10, item.Quantity)
	assert.Equal(t, 250.0, subtotal)
}

func TestCartService_AddItem_SequentialOvershoot(t *testing.T) {
	cartService, cart, product, _ := newCartFixture(t, 5, 10.0)

	// stock = 5: first add of 3 passes, second add of 3 must fail with
	// headroom 2, not jointly overshoot.
	item, _, err := cartService.AddItem(cart.ID, product.ID, 3)
	assert.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)

	_, _, err = cartService.AddItem(cart.ID, product.ID, 3)
	var stockErr *services.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
}

func TestCartService_AddItem_InvalidQuantity(t *testing.T) {
	cartService, cart, product, _ := newCartFixture(t, 5, 10.0)

	_, _, err := cartService.AddItem(cart.ID, product.ID, 0)
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	_, _, err = cartService.AddItem(cart.ID, product.ID, -2)
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	_, _, err = cartService.AddItem(cart.ID, "no-such-product", 1)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestCartService_UpdateItem(t *testing.T) {
	cartService, cart, product, _ := newCartFixture(t, 10, 25.0)

	_, _, err := cartService.AddItem(cart.ID, product.ID, 4)
	assert.NoError(t, err)

	// An update replaces the quantity, so the full stock is the ceiling.
	item, removed, err := cartService.UpdateItem(cart.ID, product.ID, 10)
	assert.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 10, item.Quantity)

	_, _, err = cartService.UpdateItem(cart.ID, product.ID, 11)
	var stockErr *services.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 10, stockErr.Available)

	// Zero and negative quantities delete the item; that's documented
	// policy, not an error.
	_, removed, err = cartService.UpdateItem(cart.ID, product.ID, 0)
	assert.NoError(t, err)
	assert.True(t, removed)

	_, _, err = cartService.AddItem(cart.ID, product.ID, 2)
	assert.NoError(t, err)
	_, removed, err = cartService.UpdateItem(cart.ID, product.ID, -1)
	assert.NoError(t, err)
	assert.True(t, removed)

	items, err := cartService.GetItems(cart.ID)
	assert.NoError(t, err)
	assert.Empty(t, items)

	// Updating a missing item is an error, unlike clearing.
	_, _, err = cartService.UpdateItem(cart.ID, product.ID, 1)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestCartService_RemoveItemAndClear(t *testing.T) {
	cartService, cart, product, _ := newCartFixture(t, 10, 5.0)

	_, _, err := cartService.AddItem(cart.ID, product.ID, 2)
	assert.NoError(t, err)

	assert.NoError(t, cartService.RemoveItem(cart.ID, product.ID))
	assert.ErrorIs(t, cartService.RemoveItem(cart.ID, product.ID), repositories.ErrNotFound)

	// Clear is idempotent: clearing an already empty cart succeeds.
	assert.NoError(t, cartService.Clear(cart.ID))
	assert.NoError(t, cartService.Clear(cart.ID))
}

func TestCartService_ValidateStock(t *testing.T) {
	cartService, cart, product, productRepo := newCartFixture(t, 10, 5.0)

	_, _, err := cartService.AddItem(cart.ID, product.ID, 8)
	assert.NoError(t, err)

	// Everything fits right now.
	violations, err := cartService.ValidateStock(cart.ID)
	assert.NoError(t, err)
	assert.Empty(t, violations)

	// Fulfillment elsewhere drops the stock under what the cart holds.
	// The cart is not corrected, only reported.
	product.Stock = 3
	assert.NoError(t, productRepo.Update(product))

	violations, err = cartService.ValidateStock(cart.ID)
	assert.NoError(t, err)
	assert.Len(t, violations, 1)
	assert.Equal(t, product.ID, violations[0].ProductID)
	assert.Equal(t, 8, violations[0].Requested)
	assert.Equal(t, 3, violations[0].Available)

	items, err := cartService.GetItems(cart.ID)
	assert.NoError(t, err)
	assert.Equal(t, 8, items[0].Quantity)
}

func TestCartService_Total(t *testing.T) {
	productRepo := repositories.NewMockProductRepository()
	cartRepo := repositories.NewMockCartRepository()
	inventory := services.NewInventoryService(productRepo)
	cartService := services.NewCartService(cartRepo, productRepo, inventory)

	lamp := &models.Product{Name: "Lamp", Price: 25.0, Stock: 10}
	chair := &models.Product{Name: "Chair", Price: 80.0, Stock: 4}
	assert.NoError(t, productRepo.Create(lamp))
	assert.NoError(t, productRepo.Create(chair))

	cart, err := cartService.GetOrCreateCart("user-1")
	assert.NoError(t, err)

	_, _, err = cartService.AddItem(cart.ID, lamp.ID, 2)
	assert.NoError(t, err)
	_, _, err = cartService.AddItem(cart.ID, chair.ID, 1)
	assert.NoError(t, err)

	total, err := cartService.Total(cart.ID)
	assert.NoError(t, err)
	assert.Equal(t, 130.0, total)

	// Total is computed fresh: a price change shows up immediately.
	lamp.Price = 30.0
	assert.NoError(t, productRepo.Update(lamp))

	total, err = cartService.Total(cart.ID)
	assert.NoError(t, err)
	assert.Equal(t, 140.0, total)
}

func TestCartService_GetOrCreateCart(t *testing.T) {
	productRepo := repositories.NewMockProductRepository()
	cartRepo := repositories.NewMockCartRepository()
	inventory := services.NewInventoryService(productRepo)
	cartService := services.NewCartService(cartRepo, productRepo, inventory)

	first, err := cartService.GetOrCreateCart("user-1")
	assert.NoError(t, err)
	second, err := cartService.GetOrCreateCart("user-1")
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := cartService.GetOrCreateCart("user-2")
	assert.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}
