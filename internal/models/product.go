package models

import (
	"time"

	"gorm.io/gorm"
)

// Category groups products for the catalog.
type Category struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name       string `json:"name" gorm:"uniqueIndex;type:varchar(255)" validate:"required,min=2,max=255"`
	gorm.Model        // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// Product represents a product in the store.
//
// RatingAvg and RatingCount are derived columns maintained by the rating
// service; they are always recomputed from the full set of ratings after a
// write, never adjusted incrementally.
type Product struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	CategoryID  string  `json:"category_id" gorm:"type:varchar(36);index" validate:"omitempty,uuid"`
	Name        string  `json:"name" validate:"required,min=3,max=255"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	RatingAvg   float64 `json:"rating_avg" gorm:"default:0"`
	RatingCount int     `json:"rating_count" gorm:"default:0"`
	gorm.Model          // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// ProductRating is one user's rating of one product. A user re-rating a
// product overwrites their previous value (last write wins); the unique
// index enforces at most one row per (product, user) pair, so no soft
// delete column that would pin index slots.
type ProductRating struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID string    `json:"product_id" gorm:"type:varchar(36);uniqueIndex:idx_product_user" validate:"required,uuid"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);uniqueIndex:idx_product_user" validate:"required,uuid"`
	Rating    int       `json:"rating" validate:"required,min=1,max=5"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
