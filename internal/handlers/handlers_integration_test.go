package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"archives/internal/handlers"
	"archives/internal/middleware"
	"archives/internal/models"
	"archives/internal/repositories"
	"archives/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testEnv bundles the running app with the hooks the tests need: the user
// repository (to read generated OTPs), the product repository (to seed and
// to simulate external stock changes), and the captured notifications.
type testEnv struct {
	app         *fiber.App
	userRepo    repositories.UserRepository
	productRepo repositories.ProductRepository
}

// captureNotifier records codes instead of delivering them.
type captureNotifier struct {
	sent int
}

func (n *captureNotifier) Send(recipient, code string, validFor time.Duration) error {
	n.sent++
	return nil
}

// setupApp builds a Fiber app against a private in-memory SQLite database.
// name keeps the databases of different tests separate.
func setupApp(name string) (*testEnv, error) {
	// Configure Viper for testing
	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
	}

	err = db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.ProductRating{},
		&models.Cart{},
		&models.CartItem{},
		&models.User{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	// Initialize Repositories
	productRepo := repositories.NewGORMProductRepository(db)
	categoryRepo := repositories.NewGORMCategoryRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	ratingRepo := repositories.NewGORMRatingRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)

	// Initialize Services
	inventoryService := services.NewInventoryService(productRepo)
	productService := services.NewProductService(productRepo)
	categoryService := services.NewCategoryService(categoryRepo)
	cartService := services.NewCartService(cartRepo, productRepo, inventoryService)
	ratingService := services.NewRatingService(ratingRepo, productRepo)
	authService := services.NewAuthService(userRepo, &captureNotifier{}, jwtSecret)

	// Initialize Handlers
	productHandler := handlers.NewProductHandler(productService, categoryService, ratingService)
	cartHandler := handlers.NewCartHandler(cartService)
	authHandler := handlers.NewAuthHandler(authService)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")

	// Authentication routes (public)
	authHandler.RegisterRoutes(apiV1)

	// Protected routes (require JWT authentication)
	protectedRoutes := apiV1.Group("", middleware.AuthRequired(authService))
	productHandler.RegisterRoutes(protectedRoutes)
	cartHandler.RegisterRoutes(protectedRoutes)

	return &testEnv{app: app, userRepo: userRepo, productRepo: productRepo}, nil
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

// doJSON issues a JSON request to the app and decodes the response body.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1) // -1 for no timeout
	assert.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	if len(raw) > 0 {
		assert.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

// registerAndActivate walks a fresh user through signup, OTP verification,
// and login, returning a usable JWT.
func registerAndActivate(t *testing.T, env *testEnv, username, email, phone string) string {
	t.Helper()

	status, _ := doJSON(t, env.app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"phone":    phone,
		"password": "password123",
	})
	assert.Equal(t, http.StatusCreated, status)

	// Login before verification is refused.
	status, _ = doJSON(t, env.app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	// Read the issued code the way the email consumer would receive it.
	user, err := env.userRepo.GetByEmail(email)
	assert.NoError(t, err)
	assert.NotNil(t, user.OTP)

	status, _ = doJSON(t, env.app, http.MethodPost, "/api/v1/auth/verify-otp", "", map[string]string{
		"email": email,
		"otp":   *user.OTP,
	})
	assert.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, env.app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, status)
	token, ok := body["token"].(string)
	assert.True(t, ok)
	assert.NotEmpty(t, token)
	return token
}

func TestSignupVerifyLoginFlow(t *testing.T) {
	env, err := setupApp("signup_flow")
	assert.NoError(t, err)

	token := registerAndActivate(t, env, "alice", "alice@example.com", "+6281111111111")
	assert.NotEmpty(t, token)

	// A second verification attempt hits the terminal state.
	user, err := env.userRepo.GetByEmail("alice@example.com")
	assert.NoError(t, err)
	assert.True(t, user.IsVerified)
	assert.Nil(t, user.OTP)

	status, _ := doJSON(t, env.app, http.MethodPost, "/api/v1/auth/verify-otp", "", map[string]string{
		"email": "alice@example.com",
		"otp":   "123456",
	})
	assert.Equal(t, http.StatusConflict, status)

	// So does a resend for a verified account.
	status, _ = doJSON(t, env.app, http.MethodPost, "/api/v1/auth/resend-otp", "", map[string]string{
		"email": "alice@example.com",
	})
	assert.Equal(t, http.StatusConflict, status)

	// Re-registering a taken username is a conflict, not a server error.
	status, _ = doJSON(t, env.app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice2@example.com",
		"phone":    "+6281111111112",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, status)
}

func TestCartFlow(t *testing.T) {
	env, err := setupApp("cart_flow")
	assert.NoError(t, err)

	product := &models.Product{Name: "Vintage Lamp", Price: 25.0, Stock: 10}
	assert.NoError(t, env.productRepo.Create(product))

	token := registerAndActivate(t, env, "bob", "bob@example.com", "+6282222222222")

	// Unauthenticated cart access is refused.
	status, _ := doJSON(t, env.app, http.MethodGet, "/api/v1/cart/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// Add 4 of 10: accepted, subtotal = 4 x 25.
	status, body := doJSON(t, env.app, http.MethodPost, "/api/v1/cart/items", token, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   4,
	})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(4), body["quantity"])
	assert.Equal(t, 100.0, body["subtotal"])

	// Adding 8 more would need 12: refused with headroom 6.
	status, body = doJSON(t, env.app, http.MethodPost, "/api/v1/cart/items", token, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   8,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, float64(6), body["available_stock"])

	// Replacing the quantity with 10 fits exactly; 11 does not.
	status, body = doJSON(t, env.app, http.MethodPut, "/api/v1/cart/items", token, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   10,
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(10), body["quantity"])

	status, body = doJSON(t, env.app, http.MethodPut, "/api/v1/cart/items", token, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   11,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, float64(10), body["available_stock"])

	// The cart read shows a fresh total.
	status, body = doJSON(t, env.app, http.MethodGet, "/api/v1/cart/", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 250.0, body["total"])

	// External fulfillment drops the stock; validate-stock reports it.
	product.Stock = 3
	assert.NoError(t, env.productRepo.Update(product))

	status, body = doJSON(t, env.app, http.MethodGet, "/api/v1/cart/validate-stock", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["valid"])

	// Update to zero removes the item; clearing after that still succeeds.
	status, body = doJSON(t, env.app, http.MethodPut, "/api/v1/cart/items", token, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   0,
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Item removed", body["message"])

	status, _ = doJSON(t, env.app, http.MethodDelete, "/api/v1/cart/", token, nil)
	assert.Equal(t, http.StatusOK, status)

	// Removing an absent item is NotFound, and adding zero is invalid.
	status, _ = doJSON(t, env.app, http.MethodDelete, "/api/v1/cart/items/"+product.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, env.app, http.MethodPost, "/api/v1/cart/items", token, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   0,
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRatingFlow(t *testing.T) {
	env, err := setupApp("rating_flow")
	assert.NoError(t, err)

	product := &models.Product{Name: "Oak Desk", Price: 150.0, Stock: 5}
	assert.NoError(t, env.productRepo.Create(product))

	carol := registerAndActivate(t, env, "carol", "carol@example.com", "+6283333333333")
	dave := registerAndActivate(t, env, "dave", "dave@example.com", "+6284444444444")

	status, body := doJSON(t, env.app, http.MethodPost, "/api/v1/products/"+product.ID+"/rate", carol, map[string]int{
		"rating": 4,
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 4.0, body["rating_avg"])
	assert.Equal(t, float64(1), body["rating_count"])

	status, body = doJSON(t, env.app, http.MethodPost, "/api/v1/products/"+product.ID+"/rate", dave, map[string]int{
		"rating": 5,
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 4.5, body["rating_avg"])
	assert.Equal(t, float64(2), body["rating_count"])

	// Carol revising her rating changes the average but not the count.
	status, body = doJSON(t, env.app, http.MethodPost, "/api/v1/products/"+product.ID+"/rate", carol, map[string]int{
		"rating": 5,
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5.0, body["rating_avg"])
	assert.Equal(t, float64(2), body["rating_count"])

	// The product row carries the persisted aggregates.
	stored, err := env.productRepo.GetByID(product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 5.0, stored.RatingAvg)
	assert.Equal(t, 2, stored.RatingCount)

	// Out-of-range values are refused.
	status, _ = doJSON(t, env.app, http.MethodPost, "/api/v1/products/"+product.ID+"/rate", carol, map[string]int{
		"rating": 6,
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestResendOTPFlow(t *testing.T) {
	env, err := setupApp("resend_flow")
	assert.NoError(t, err)

	status, _ := doJSON(t, env.app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "erin",
		"email":    "erin@example.com",
		"phone":    "+6285555555555",
		"password": "password123",
	})
	assert.Equal(t, http.StatusCreated, status)

	user, err := env.userRepo.GetByEmail("erin@example.com")
	assert.NoError(t, err)
	firstIssuedAt := *user.OTPIssuedAt

	status, _ = doJSON(t, env.app, http.MethodPost, "/api/v1/auth/resend-otp", "", map[string]string{
		"email": "erin@example.com",
	})
	assert.Equal(t, http.StatusOK, status)

	user, err = env.userRepo.GetByEmail("erin@example.com")
	assert.NoError(t, err)
	assert.NotNil(t, user.OTP)
	assert.False(t, user.OTPIssuedAt.Before(firstIssuedAt))

	// The latest code verifies.
	status, _ = doJSON(t, env.app, http.MethodPost, "/api/v1/auth/verify-otp", "", map[string]string{
		"email": "erin@example.com",
		"otp":   *user.OTP,
	})
	assert.Equal(t, http.StatusOK, status)

	// Unknown accounts surface as NotFound.
	status, _ = doJSON(t, env.app, http.MethodPost, "/api/v1/auth/resend-otp", "", map[string]string{
		"email": "ghost@example.com",
	})
	assert.Equal(t, http.StatusNotFound, status)
}
