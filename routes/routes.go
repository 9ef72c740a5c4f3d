package routes

import (
	"dashboard-service/controllers"
	"dashboard-service/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts probes at the root and the API under /api. Probes
// are not rate limited.
func RegisterRoutes(r *gin.Engine, cc *controllers.CatalogController, sc *controllers.SeedingController, rl *middleware.RateLimiter) {
	r.GET("/health", sc.Health)
	r.GET("/ready", sc.Ready)

	api := r.Group("/api")
	api.Use(rl.Middleware())

	api.GET("/seeding/status", sc.Status)
	api.GET("/catalog/productSetDetailsByDescription", cc.ProductSetDetailsByDescription)
}
