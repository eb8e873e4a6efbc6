// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/homedar/homedar-backend/internal/config"
	"github.com/homedar/homedar-backend/internal/geo"
	"github.com/homedar/homedar-backend/internal/handlers"
	"github.com/homedar/homedar-backend/internal/middleware"
	"github.com/homedar/homedar-backend/internal/services"
	"github.com/homedar/homedar-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	geoClient := geo.NewClient(cfg.Geo)
	visitorService := services.NewVisitorService(db, geoClient)
	trackingService := services.NewTrackingService(db, visitorService)
	rankingService := services.NewRankingService(db)
	productService := services.NewProductService(db)
	otpService := services.NewOTPService(db)
	emailSender := services.NewEmailSender(cfg.Email)
	authService := services.NewAuthService(db, otpService, emailSender, cfg.JWT)
	rateGate := services.NewRateGate(db)

	// Initialize handlers
	trackingHandler := handlers.NewTrackingHandler(trackingService, rankingService)
	productHandler := handlers.NewProductHandler(productService)
	authHandler := handlers.NewAuthHandler(authService, rateGate)
	contactHandler := handlers.NewContactHandler(db)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	api := r.Group("/api")
	{
		// Visitor tracking
		tracking := api.Group("/tracking")
		{
			tracking.POST("/product-views", trackingHandler.RecordView)
			tracking.GET("/recent-products", trackingHandler.RecentProducts)
			tracking.GET("/popular-products", trackingHandler.PopularProducts)
			tracking.GET("/also-viewed/:product_id", trackingHandler.AlsoViewed)
			tracking.POST("/product-like", trackingHandler.ToggleLike)
			tracking.GET("/product-like/:product_id", trackingHandler.LikeStatus)
			tracking.GET("/favorite-products", trackingHandler.FavoriteProducts)
		}

		// Catalog
		products := api.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
			products.GET("/:id/reviews", trackingHandler.ListReviews)
			products.POST("/:id/reviews", middleware.OptionalAuth(), trackingHandler.AddReview)
		}

		// Authentication
		auth := api.Group("/auth")
		{
			auth.POST("/signup/request-code", authHandler.RequestSignupCode)
			auth.POST("/signup/verify-code", authHandler.VerifySignup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/token/refresh", authHandler.RefreshToken)
			auth.POST("/password-reset/request-code", authHandler.RequestPasswordResetCode)
			auth.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
			auth.GET("/profile", middleware.AuthRequired(), authHandler.Profile)
		}

		api.POST("/contact-us", contactHandler.Submit)
	}

	return r
}
