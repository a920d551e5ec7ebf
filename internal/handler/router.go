package handler

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jack/golang-slug-link-service/internal/middleware"
)

// NewRouter assembles the full route table around the dispatcher. extra
// middleware (the rate limiter in production) runs on every request.
func NewRouter(h *Handler, adminToken string, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()

	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Printf("panic recovered: path=%s err=%v", c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Internal server error",
		})
	}))
	router.Use(gin.Logger())

	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", middleware.AdminTokenHeader},
	}))

	for _, mw := range extra {
		router.Use(mw)
	}

	// ClientIP() is spoofable without a trusted-proxy allowlist when the
	// service sits behind a proxy.
	router.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})

	router.GET("/health", h.Health)
	router.GET("/health/detailed", h.HealthDetailed)

	router.POST("/", h.CreateLink)

	api := router.Group("/api")
	api.Use(middleware.AdminAuth(adminToken))
	{
		api.GET("/list", h.AdminList)
		api.GET("/stats/:code", h.AdminStats)
		api.GET("/detail/:code", h.AdminDetail)
		api.DELETE("/delete/:code", h.AdminDelete)
	}

	// Everything else: slug redirects, static assets, 405 fallback.
	router.NoRoute(h.Dispatch)

	return router
}
