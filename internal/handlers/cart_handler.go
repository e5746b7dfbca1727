package handlers

import (
	"errors"
	"log"

	"archives/internal/repositories"
	"archives/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the authenticated user's cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes with the Fiber app. All routes
// operate on the calling user's own cart, resolved from the JWT claims.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Put("/items", h.HandleUpdateItem)
	cartRoutes.Delete("/items/:productID", h.HandleRemoveItem)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Get("/validate-stock", h.HandleValidateStock)
}

// cartItemResponse is a cart item decorated with its current subtotal.
type cartItemResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

// HandleGetCart returns the user's cart with its items and a fresh total.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	cart, err := h.service.GetOrCreateCart(currentUserID(c))
	if err != nil {
		log.Printf("Error getting cart: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve cart",
			"error":   err.Error(),
		})
	}

	items, err := h.service.GetItems(cart.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve cart items",
			"error":   err.Error(),
		})
	}

	itemResponses := make([]cartItemResponse, 0, len(items))
	for i := range items {
		subtotal, err := h.service.Subtotal(&items[i])
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not price cart items",
				"error":   err.Error(),
			})
		}
		itemResponses = append(itemResponses, cartItemResponse{
			ID:        items[i].ID,
			ProductID: items[i].ProductID,
			Quantity:  items[i].Quantity,
			Subtotal:  subtotal,
		})
	}

	total, err := h.service.Total(cart.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not compute cart total",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"id":    cart.ID,
		"items": itemResponses,
		"total": total,
	})
}

// CartItemRequest represents the request body for add/update item calls.
type CartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

// HandleAddItem adds quantity units of a product to the user's cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req CartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationMessages(err),
		})
	}

	cart, err := h.service.GetOrCreateCart(currentUserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve cart",
			"error":   err.Error(),
		})
	}

	item, subtotal, err := h.service.AddItem(cart.ID, req.ProductID, req.Quantity)
	if err != nil {
		return h.cartError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(cartItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Subtotal:  subtotal,
	})
}

// HandleUpdateItem sets an item's quantity exactly; zero or below removes it.
func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	var req CartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationMessages(err),
		})
	}

	cart, err := h.service.GetOrCreateCart(currentUserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve cart",
			"error":   err.Error(),
		})
	}

	item, removed, err := h.service.UpdateItem(cart.ID, req.ProductID, req.Quantity)
	if err != nil {
		return h.cartError(c, err)
	}
	if removed {
		return c.JSON(fiber.Map{"message": "Item removed"})
	}

	subtotal, err := h.service.Subtotal(item)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not price cart item",
			"error":   err.Error(),
		})
	}
	return c.JSON(cartItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Subtotal:  subtotal,
	})
}

// HandleRemoveItem deletes one product's item from the user's cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	cart, err := h.service.GetOrCreateCart(currentUserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve cart",
			"error":   err.Error(),
		})
	}

	if err := h.service.RemoveItem(cart.ID, c.Params("productID")); err != nil {
		return h.cartError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Item removed"})
}

// HandleClearCart removes every item from the user's cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	cart, err := h.service.GetOrCreateCart(currentUserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve cart",
			"error":   err.Error(),
		})
	}

	if err := h.service.Clear(cart.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not clear cart",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{"message": "Cart cleared"})
}

// HandleValidateStock reports cart items whose quantity now exceeds stock.
func (h *CartHandler) HandleValidateStock(c *fiber.Ctx) error {
	cart, err := h.service.GetOrCreateCart(currentUserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve cart",
			"error":   err.Error(),
		})
	}

	violations, err := h.service.ValidateStock(cart.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not validate cart stock",
			"error":   err.Error(),
		})
	}

	if len(violations) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"valid":   false,
			"message": "Some items exceed available stock",
			"errors":  violations,
		})
	}
	return c.JSON(fiber.Map{
		"valid":   true,
		"message": "All items are available",
	})
}

// cartError maps the typed cart errors to HTTP responses.
func (h *CartHandler) cartError(c *fiber.Ctx, err error) error {
	log.Printf("Cart operation failed: %v", err)

	var stockErr *services.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message":         stockErr.Error(),
			"available_stock": stockErr.Available,
		})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	case errors.Is(err, repositories.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": err.Error(),
		})
	case errors.Is(err, repositories.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Cart was modified concurrently, please retry",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Cart operation failed",
		"error":   err.Error(),
	})
}

// currentUserID reads the user ID stored by the JWT middleware.
func currentUserID(c *fiber.Ctx) string {
	if id, ok := c.Locals("user_id").(string); ok {
		return id
	}
	return ""
}
