package api

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/healthz", h.Health)

	menuRoutes := r.Group("/menu")
	{
		menuRoutes.POST("/process", h.Process)
		menuRoutes.POST("/retry/:token", h.Retry)
		menuRoutes.DELETE("/session/:token", h.DeleteSession)
		menuRoutes.POST("/share", h.CreateShare)
		menuRoutes.GET("/share/:token", h.FetchShare)
	}
}
