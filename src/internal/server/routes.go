package server

import (
	"time"

	"edustream-access-svc/src/clients"
	"edustream-access-svc/src/internal/dependency"
	"edustream-access-svc/src/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func SetupRoutes(deps *dependency.Manager) {
	router := deps.Router
	router.Use(enableCORS)

	setupHealthEndpoint(deps)
	setupAuthRoutes(router, deps)
	setupContentRoutes(router, deps)
	setupAdminRoutes(router, deps)
}

func setupHealthEndpoint(deps *dependency.Manager) {
	router := deps.Router
	mongodb := deps.Mongodb
	redisClient := deps.Redis
	cfg := deps.Config

	router.GET("/health", func(c *gin.Context) {
		log.Info("Health check endpoint requested")

		mongoStatus := "ok"
		if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
			mongoStatus = "error: " + err.Error()
		}

		redisStatus := "ok"
		if err := redisClient.Client.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = "error: " + err.Error()
		}

		c.JSON(200, gin.H{
			"status":    "ok",
			"service":   cfg.App.Name,
			"version":   cfg.App.Version,
			"mongodb":   mongoStatus,
			"redis":     redisStatus,
			"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	})

	router.GET("/health/detailed", func(c *gin.Context) {
		log.Info("Detailed health check endpoint requested")

		c.JSON(200, gin.H{
			"status":  "operational",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
			"components": gin.H{
				"database": gin.H{
					"mongodb": getStatus(isMongoConnected(mongodb, c)),
					"redis":   getStatus(isRedisConnected(redisClient.Client, c)),
				},
				"services": gin.H{
					"identity": "operational",
					"session":  "operational",
					"content":  "operational",
				},
			},
		})
	})
}

func setupAuthRoutes(router *gin.Engine, deps *dependency.Manager) {
	authMiddleware := middleware.NewAuthMiddleware(deps.Verifier, deps.Validator)
	handler := deps.SessionHandler

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login",
			setRouteName("login"),
			handler.Login)

		auth.POST("/logout",
			setRouteName("logout"),
			authMiddleware.RequireAuth(),
			handler.Logout)

		auth.GET("/session",
			setRouteName("checkSession"),
			authMiddleware.RequireAuth(),
			handler.CheckSession)
	}
}

func setupContentRoutes(router *gin.Engine, deps *dependency.Manager) {
	authMiddleware := middleware.NewAuthMiddleware(deps.Verifier, deps.Validator)
	handler := deps.ContentHandler

	content := router.Group("/api/v1/content")
	{
		content.GET("/:id",
			setRouteName("getContent"),
			authMiddleware.RequireAuth(),
			handler.GetContent)
	}
}

func setupAdminRoutes(router *gin.Engine, deps *dependency.Manager) {
	authMiddleware := middleware.NewAuthMiddleware(deps.Verifier, deps.Validator)
	handler := deps.SessionHandler

	admin := router.Group("/api/v1/admin")
	{
		admin.POST("/accounts/:id/force-logout",
			setRouteName("forceLogout"),
			authMiddleware.RequireAuth(),
			authMiddleware.RequireAdminRights(),
			handler.ForceLogout)
	}
}

func setRouteName(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("route_name", name)
		c.Next()
	}
}

func isMongoConnected(mongodb *clients.MongoDB, c *gin.Context) bool {
	if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
		return false
	}
	return true
}

func isRedisConnected(redisClient *redis.Client, c *gin.Context) bool {
	if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
		return false
	}
	return true
}

func enableCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(204)
		return
	}

	c.Next()
}

func getStatus(b bool) string {
	if b {
		return "connected"
	}
	return "disconnected"
}
