package repositories

import (
	"fmt"

	"archives/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMRatingRepository is a GORM implementation of RatingRepository.
type GORMRatingRepository struct {
	db *gorm.DB
}

// NewGORMRatingRepository creates a new instance of GORMRatingRepository.
func NewGORMRatingRepository(db *gorm.DB) *GORMRatingRepository {
	return &GORMRatingRepository{
		db: db,
	}
}

// Upsert writes the rating for a (product, user) pair. The ON CONFLICT
// clause against the (product, user) unique index makes a re-rating a
// plain overwrite instead of a second row.
func (r *GORMRatingRepository) Upsert(rating *models.ProductRating) error {
	if rating.ID == "" {
		rating.ID = uuid.New().String()
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
	}).Create(rating).Error
	if err != nil {
		return fmt.Errorf("failed to upsert rating for product %s by user %s: %w", rating.ProductID, rating.UserID, err)
	}
	return nil
}

// Aggregate computes the mean and count over all ratings for a product.
func (r *GORMRatingRepository) Aggregate(productID string) (float64, int, error) {
	var result struct {
		Avg   float64
		Count int
	}
	err := r.db.Model(&models.ProductRating{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Scan(&result).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate ratings for product %s: %w", productID, err)
	}
	return result.Avg, result.Count, nil
}
