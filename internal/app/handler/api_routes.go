package handler

import (
	"crm-backend/internal/app/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes регистрирует REST API маршруты
func (h *APIHandler) RegisterAPIRoutes(router *gin.Engine, authMiddleware *middleware.AuthMiddleware) {
	api := router.Group("/api")

	// AJAX-эндпоинты формы сделки
	api.GET("/find_client/", h.FindClient)

	services := api.Group("/services")
	{
		services.GET("/", h.GetServices)
		services.POST("/", h.CreateService)
		services.GET("/:id/image", h.GetServiceImage)
		services.POST("/:id/image", authMiddleware.WithAuthCheck(), h.UploadServiceImage)
	}

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.AuthHandler.RegisterUser)
		auth.POST("/login", h.AuthHandler.LoginUser)
		auth.GET("/profile", authMiddleware.WithAuthCheck(), h.AuthHandler.GetUserProfile)
		auth.POST("/logout", authMiddleware.WithAuthCheck(), h.AuthHandler.LogoutUser)
	}

	router.GET("/ping", h.Ping)
}
