package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dashboard-service/models"
	"dashboard-service/repository"

	"go.uber.org/zap"
)

// TagSeparator joins multi-valued tags in the flattened product view.
const TagSeparator = ","

type CatalogService interface {
	ProductSetDetailsByDescription(ctx context.Context, description string) ([]models.ProductSetDetails, error)
}

type catalogService struct {
	repo   repository.CatalogRepository
	logger *zap.Logger
}

func NewCatalogService(repo repository.CatalogRepository, logger *zap.Logger) CatalogService {
	return &catalogService{repo: repo, logger: logger}
}

func (s *catalogService) ProductSetDetailsByDescription(ctx context.Context, description string) ([]models.ProductSetDetails, error) {
	items, err := s.repo.FindByDescription(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("find catalog items: %w", err)
	}

	out := make([]models.ProductSetDetails, 0, len(items))
	for _, item := range items {
		out = append(out, s.toDetails(item))
	}
	return out, nil
}

func (s *catalogService) toDetails(item models.CatalogItem) models.ProductSetDetails {
	var tags models.CatalogTags
	if item.TagsJSON != "" {
		if err := json.Unmarshal([]byte(item.TagsJSON), &tags); err != nil {
			s.logger.Warn("Ignoring malformed catalog tags", zap.Int("item_id", item.ID), zap.Error(err))
			tags = models.CatalogTags{}
		}
	}

	return models.ProductSetDetails{
		ID:             item.ID,
		CatalogBrandID: item.CatalogBrandID,
		Description:    item.Description,
		Price:          item.Price,
		PictureURI:     item.PictureURI,
		Color:          strings.Join(tags.Color, TagSeparator),
		Size:           strings.Join(tags.Size, TagSeparator),
		Shape:          strings.Join(tags.Shape, TagSeparator),
		Quantity:       strings.Join(tags.Quantity, TagSeparator),
		AGram:          tags.AGram,
		BGram:          tags.BGram,
		ABGram:         tags.ABGram,
		YGram:          tags.YGram,
		ZGram:          tags.ZGram,
		YZGram:         tags.YZGram,
	}
}
