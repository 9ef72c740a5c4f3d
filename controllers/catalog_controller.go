package controllers

import (
	"errors"
	"net/http"

	"dashboard-service/apperrors"
	"dashboard-service/logger"
	"dashboard-service/models"
	"dashboard-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CatalogController struct {
	service services.CatalogService
	cache   *CacheManager
}

func NewCatalogController(service services.CatalogService, cache *CacheManager) *CatalogController {
	return &CatalogController{service: service, cache: cache}
}

// ProductSetDetailsByDescription handles
// GET /api/catalog/productSetDetailsByDescription?description=...
// A search without matches answers 200 with an empty body.
func (cc *CatalogController) ProductSetDetailsByDescription(c *gin.Context) {
	description := c.Query("description")
	if description == "" {
		_ = c.Error(apperrors.ErrInvalidInput.Wrap(errors.New("description is required")))
		return
	}
	ctx := c.Request.Context()

	if items, ok := cc.cache.GetProductSetDetails(ctx, description); ok {
		writeProductSet(c, items)
		return
	}

	items, err := cc.service.ProductSetDetailsByDescription(ctx, description)
	if err != nil {
		logger.FromContext(c).Error("Catalog search failed", zap.String("description", description), zap.Error(err))
		_ = c.Error(apperrors.ErrDatabaseQuery.Wrap(err))
		return
	}

	cc.cache.SetProductSetDetailsAsync(description, items)
	writeProductSet(c, items)
}

func writeProductSet(c *gin.Context, items []models.ProductSetDetails) {
	if len(items) == 0 {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, items)
}
