package repositories

import (
	"sync"

	"archives/internal/models"

	"github.com/google/uuid"
)

// MockRatingRepository is an in-memory implementation of RatingRepository.
type MockRatingRepository struct {
	ratings map[string]map[string]models.ProductRating // product ID -> user ID -> rating
	mu      sync.RWMutex
}

// NewMockRatingRepository creates a new instance of MockRatingRepository.
func NewMockRatingRepository() *MockRatingRepository {
	return &MockRatingRepository{
		ratings: make(map[string]map[string]models.ProductRating),
	}
}

// Upsert writes the rating for a (product, user) pair, last write wins.
func (r *MockRatingRepository) Upsert(rating *models.ProductRating) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ratings[rating.ProductID] == nil {
		r.ratings[rating.ProductID] = make(map[string]models.ProductRating)
	}
	if existing, ok := r.ratings[rating.ProductID][rating.UserID]; ok {
		rating.ID = existing.ID
	} else if rating.ID == "" {
		rating.ID = uuid.New().String()
	}
	r.ratings[rating.ProductID][rating.UserID] = *rating
	return nil
}

// Aggregate computes the mean and count over all ratings for a product.
func (r *MockRatingRepository) Aggregate(productID string) (float64, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byUser := r.ratings[productID]
	if len(byUser) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, rating := range byUser {
		sum += rating.Rating
	}
	return float64(sum) / float64(len(byUser)), len(byUser), nil
}
