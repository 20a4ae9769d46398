package catalog

import (
	"context"

	"github.com/uptrace/bun"

	"ms-support/internal/models"
)

// DB reads the support-category catalog. Categories are seeded by migrations
// and managed out of band, so this layer is read-only.
type DB struct {
	Bun *bun.DB
}

// ListCategories → all categories ordered by name, optionally limited
func (d *DB) ListCategories(ctx context.Context, limit int) ([]models.SupportCategory, error) {
	var categories []models.SupportCategory
	q := d.Bun.NewSelect().
		Model(&categories).
		Order("name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []models.SupportCategory{}
	}
	return categories, nil
}

// GetCategoryByID → fetch one category
func (d *DB) GetCategoryByID(ctx context.Context, categoryID string) (*models.SupportCategory, error) {
	var category models.SupportCategory
	err := d.Bun.NewSelect().
		Model(&category).
		Where("category_id = ?", categoryID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &category, nil
}
