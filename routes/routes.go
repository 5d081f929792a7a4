package routes

import (
	"Conspiracy/controllers"
	"Conspiracy/middleware"
	utils "Conspiracy/utils"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRoutes configures all API routes. Admin routes are only mounted when
// adminSecret is set.
func SetupRoutes(router *gin.Engine, registry controllers.RoomRegistry, janitor controllers.RoomJanitor, adminSecret string) {
	// utils global
	router.Use(utils.ErrorHandler())

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/")

	api.GET("/ping", controllers.Ping)

	rooms := api.Group("/rooms")
	{
		rooms.POST("", controllers.CreateRoom(registry))

		rooms.GET("/:code", controllers.GetRoom(registry))

		rooms.POST("/:code/join", controllers.JoinRoom(registry))

		rooms.POST("/:code/leave", controllers.LeaveRoom(registry))

		rooms.POST("/:code/settings", controllers.UpdateSettings(registry))

		rooms.POST("/:code/start", controllers.StartGame(registry))

		rooms.POST("/:code/end", controllers.EndGame(registry))
	}

	if adminSecret == "" {
		return
	}
	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired([]byte(adminSecret)))
	{
		admin.GET("/stats", controllers.AdminStats(janitor))

		admin.POST("/cleanup", controllers.AdminCleanup(janitor))

		admin.DELETE("/rooms/:code", controllers.AdminDeleteRoom(registry, janitor))
	}
}
