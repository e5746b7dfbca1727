package repositories

import (
	"archives/internal/models"
)

// RatingRepository defines the interface for product rating data access.
type RatingRepository interface {
	// Upsert writes the rating for a (product, user) pair, overwriting any
	// previous value (last write wins).
	Upsert(rating *models.ProductRating) error
	// Aggregate returns the mean and count over all ratings for a product.
	// A product with no ratings aggregates to (0, 0).
	Aggregate(productID string) (avg float64, count int, err error)
}
