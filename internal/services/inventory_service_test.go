package services_test

import (
	"fmt"
	"testing"

	"archives/internal/models"
	"archives/internal/repositories"
	"archives/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// StubProductRepository is a testify mock of repositories.ProductRepository.
type StubProductRepository struct {
	mock.Mock
}

func (m *StubProductRepository) GetAll() ([]models.Product, error) {
	args := m.Called()
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *StubProductRepository) GetByID(id string) (*models.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *StubProductRepository) Create(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *StubProductRepository) Update(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *StubProductRepository) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *StubProductRepository) UpdateRatingStats(id string, avg float64, count int) error {
	args := m.Called(id, avg, count)
	return args.Error(0)
}

func TestInventoryService_Available(t *testing.T) {
	mockRepo := new(StubProductRepository)
	inventory := services.NewInventoryService(mockRepo)

	mockRepo.On("GetByID", "prod-1").Return(&models.Product{ID: "prod-1", Stock: 7}, nil).Once()
	available, err := inventory.Available("prod-1")
	assert.NoError(t, err)
	assert.Equal(t, 7, available)
	mockRepo.AssertExpectations(t)

	mockRepo.On("GetByID", "prod-99").
		Return(nil, fmt.Errorf("product with ID prod-99: %w", repositories.ErrNotFound)).Once()
	_, err = inventory.Available("prod-99")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestInventoryService_CanReserve(t *testing.T) {
	mockRepo := new(StubProductRepository)
	inventory := services.NewInventoryService(mockRepo)

	product := &models.Product{ID: "prod-1", Stock: 5}

	// Boundary: a request equal to the stock still fits.
	mockRepo.On("GetByID", "prod-1").Return(product, nil).Times(3)

	ok, err := inventory.CanReserve("prod-1", 5)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = inventory.CanReserve("prod-1", 6)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = inventory.CanReserve("prod-1", 1)
	assert.NoError(t, err)
	assert.True(t, ok)
	mockRepo.AssertExpectations(t)
}
