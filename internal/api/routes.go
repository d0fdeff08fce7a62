package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	// Health check
	router.GET("/health", handler.HealthCheck)

	router.POST("/enqueue", handler.Enqueue)
	router.GET("/status/:jobId", handler.Status)
	router.POST("/login/:role", handler.Login)
}
