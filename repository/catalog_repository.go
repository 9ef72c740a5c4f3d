package repository

import (
	"context"
	"strings"

	"dashboard-service/models"

	"gorm.io/gorm"
)

type CatalogRepository interface {
	FindByDescription(ctx context.Context, description string) ([]models.CatalogItem, error)
}

type GormCatalogRepository struct {
	db *gorm.DB
}

func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// FindByDescription returns items whose description contains the given text,
// ignoring case. LIKE wildcards in the input match literally.
func (r *GormCatalogRepository) FindByDescription(ctx context.Context, description string) ([]models.CatalogItem, error) {
	var items []models.CatalogItem
	pattern := "%" + escapeLike(description) + "%"
	err := r.db.WithContext(ctx).
		Where("description ILIKE ?", pattern).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
