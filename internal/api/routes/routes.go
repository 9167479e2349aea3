package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princeprakhar/travel-review-backend/internal/api/handlers"
	"github.com/princeprakhar/travel-review-backend/internal/api/middleware"
	"github.com/princeprakhar/travel-review-backend/internal/config"
	"github.com/princeprakhar/travel-review-backend/internal/metrics"
	"github.com/princeprakhar/travel-review-backend/internal/services"
	"github.com/princeprakhar/travel-review-backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, imageService *services.ImageService, m *metrics.Metrics, gatherer prometheus.Gatherer) {
	// Middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RateLimitMiddleware(cfg))

	// Initialize services
	var notifier services.CommentNotifier
	if cfg.SMTPEnabled() {
		notifier = services.NewEmailService(cfg)
	}
	authService := services.NewAuthService(db, cfg.JWTSecret)
	routeService := services.NewTravelRouteService(db)
	reviewService := services.NewReviewService(db, imageService, m)
	commentService := services.NewCommentService(db, notifier)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	routeHandler := handlers.NewTravelRouteHandler(routeService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	imageHandler := handlers.NewImageHandler(imageService)
	commentHandler := handlers.NewCommentHandler(commentService)

	requireAuth := middleware.AuthMiddleware(cfg)
	optionalAuth := middleware.OptionalAuth(cfg)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Server is running"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API routes
	api := router.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", requireAuth, authHandler.Me)
		auth.PATCH("/me", requireAuth, authHandler.UpdateMe)
		auth.DELETE("/me", requireAuth, authHandler.DeleteMe)
		auth.POST("/password-check", requireAuth, authHandler.CheckPassword)
	}

	travelRoutes := api.Group("/travel-routes")
	{
		travelRoutes.POST("", requireAuth, routeHandler.CreateTravelRoute)
		travelRoutes.GET("/:route_id", routeHandler.GetTravelRoute)
	}

	reviews := api.Group("/reviews")
	{
		reviews.GET("", optionalAuth, reviewHandler.ListReviews)
		reviews.POST("", requireAuth, reviewHandler.CreateReview)

		reviews.POST("/images", requireAuth, imageHandler.UploadImage)
		reviews.DELETE("/images", requireAuth, imageHandler.DeleteImage)

		reviews.GET("/:review_id", optionalAuth, reviewHandler.GetReview)
		reviews.PATCH("/:review_id", requireAuth, reviewHandler.UpdateReview)
		reviews.DELETE("/:review_id", requireAuth, reviewHandler.DeleteReview)
		reviews.POST("/:review_id/like", requireAuth, reviewHandler.ToggleLike)

		reviews.GET("/:review_id/comments", commentHandler.ListComments)
		reviews.POST("/:review_id/comments", requireAuth, commentHandler.CreateComment)
	}

	comments := api.Group("/comments", requireAuth)
	{
		comments.PATCH("/:comment_id", commentHandler.UpdateComment)
		comments.DELETE("/:comment_id", commentHandler.DeleteComment)
	}

	logger.Info("Routes initialized successfully")
}
