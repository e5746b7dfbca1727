package services

import (
	"fmt"
	"math"

	"archives/internal/models"
	"archives/internal/repositories"
)

// RatingService handles product rating writes and keeps the derived
// aggregate columns on the product consistent with the full set of ratings.
type RatingService struct {
	ratings      repositories.RatingRepository
	products     repositories.ProductRepository
	productLocks keyedMutex
}

// NewRatingService creates a new RatingService.
func NewRatingService(ratings repositories.RatingRepository, products repositories.ProductRepository) *RatingService {
	return &RatingService{
		ratings:  ratings,
		products: products,
	}
}

// Rate records a user's rating of a product and recomputes the product's
// average and count over all ratings. A user re-rating a product overwrites
// their previous value, so the count never double-counts an account. The
// aggregate is recomputed after the upsert is durable (read-your-write) and
// the average is rounded half away from zero to 2 decimal places. Returns
// the new aggregate pair.
func (s *RatingService) Rate(productID, userID string, value int) (avg float64, count int, err error) {
	if value < 1 || value > 5 {
		return 0, 0, fmt.Errorf("rating must be an integer between 1 and 5: %w", ErrInvalidInput)
	}

	// The upsert-aggregate-persist sequence must not interleave per product,
	// or a stale aggregate could land last.
	unlock := s.productLocks.lock(productID)
	defer unlock()

	if _, err := s.products.GetByID(productID); err != nil {
		return 0, 0, err
	}

	rating := &models.ProductRating{
		ProductID: productID,
		UserID:    userID,
		Rating:    value,
	}
	if err := s.ratings.Upsert(rating); err != nil {
		return 0, 0, err
	}

	avg, count, err = s.ratings.Aggregate(productID)
	if err != nil {
		return 0, 0, err
	}
	avg = math.Round(avg*100) / 100

	if err := s.products.UpdateRatingStats(productID, avg, count); err != nil {
		return 0, 0, err
	}
	return avg, count, nil
}
