package handlers

import (
	"reservation-service/internal/auth"

	"github.com/gin-gonic/gin"
)

// Routes groups the handlers mounted under /api/v1.
type Routes struct {
	Sessions     *SessionHandler
	Availability *AvailabilityHandler
	Catalog      *CatalogHandler
	Health       *HealthHandler
	Auth         *auth.AuthHandler
	// Operator guards the catalog routes.
	Operator gin.HandlerFunc
}

// Register mounts the API on router.
func (r Routes) Register(router gin.IRouter) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", r.Health.Health)
		v1.POST("/auth/login", r.Auth.Login)

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", r.Sessions.CreateSession)
			sessions.GET("/:id/stream", r.Sessions.Stream)
			sessions.POST("/:id/reservations", r.Sessions.Reserve)
			sessions.POST("/:id/releases", r.Sessions.Release)
			sessions.GET("/:id/holds", r.Sessions.GetHolds)
			sessions.DELETE("/:id", r.Sessions.EndSession)
		}

		v1.GET("/availability", r.Availability.GetAvailability)
		v1.GET("/items/:id/availability", r.Availability.GetItemAvailability)

		catalog := v1.Group("/catalog")
		catalog.Use(r.Operator)
		{
			catalog.GET("/items", r.Catalog.ListItems)
			catalog.PUT("/items/:id", r.Catalog.UpsertItem)
			catalog.DELETE("/items/:id", r.Catalog.DeleteItem)
			catalog.GET("/inconsistencies", r.Catalog.ListInconsistencies)
		}
	}
}
