package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"restaurant-directory-api/auth"
	"restaurant-directory-api/handlers"
	"restaurant-directory-api/metrics"
	"restaurant-directory-api/middleware"
	"restaurant-directory-api/models"
	"restaurant-directory-api/services"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	DB          *gorm.DB
	Creds       *auth.Service
	Users       *services.UserService
	Restaurants *services.RestaurantService
	Reviews     *services.ReviewService
	AuthLimiter *middleware.RateLimiter
	// UploadsDir is served under /uploads when images are stored locally.
	UploadsDir string
}

func SetupRoutes(r *gin.Engine, d Deps) error {
	if err := handlers.RegisterValidators(); err != nil {
		return err
	}

	authH := handlers.NewAuthHandler(d.Users)
	userH := handlers.NewUserHandler(d.Users)
	restaurantH := handlers.NewRestaurantHandler(d.Restaurants)
	adminH := handlers.NewAdminHandler(d.Restaurants)
	reviewH := handlers.NewReviewHandler(d.Reviews)

	authRequired := middleware.AuthRequired(d.Creds)
	adminOnly := middleware.RoleRequired(models.RoleAdmin)

	r.GET("/health", handlers.Health(d.DB))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	if d.UploadsDir != "" {
		r.Static("/uploads", d.UploadsDir)
	}

	api := r.Group("/api")
	api.GET("/state-machine", handlers.GetStateMachineInfo)

	// ── Auth ───────────────────────────────────────────────────────
	authGroup := api.Group("/auth")
	if d.AuthLimiter != nil {
		authGroup.Use(d.AuthLimiter.Handler())
	}
	{
		authGroup.POST("/register", authH.Register)
		authGroup.POST("/register-business", authH.RegisterBusiness)
		authGroup.POST("/login", authH.Login)
		authGroup.POST("/verify-email/:token", authH.VerifyEmail)
	}

	// ── Users ──────────────────────────────────────────────────────
	users := api.Group("/users")
	{
		users.GET("/profile", authRequired, userH.GetProfile)
		users.PUT("/profile", authRequired, userH.UpdateProfile)
		users.PUT("/change-password", authRequired, userH.ChangePassword)
		users.POST("/forgot-password", userH.ForgotPassword)
		users.POST("/reset-password/:token", userH.ResetPassword)
	}

	// ── Restaurants ────────────────────────────────────────────────
	restaurants := api.Group("/restaurants")
	{
		restaurants.GET("", restaurantH.List)
		restaurants.GET("/categories", restaurantH.Categories)
		restaurants.GET("/owner", authRequired, restaurantH.Owned)
		restaurants.GET("/:id", middleware.OptionalAuth(d.Creds), restaurantH.Get)
		restaurants.GET("/:id/ratings", restaurantH.Ratings)
		restaurants.POST("", authRequired, restaurantH.Create)
		restaurants.PUT("/:id", authRequired, restaurantH.Update)
		restaurants.PUT("/:id/request-delete", authRequired, restaurantH.RequestDelete)
		restaurants.DELETE("/:id", authRequired, adminOnly, restaurantH.Delete)
	}

	// ── Admin ──────────────────────────────────────────────────────
	admin := api.Group("/admin")
	admin.Use(authRequired, adminOnly)
	{
		admin.GET("/pending-restaurants", adminH.Pending)
		admin.PUT("/approve-restaurant/:id", adminH.Approve)
		admin.PUT("/reject-restaurant/:id", adminH.Reject)
		admin.PUT("/approve-delete/:id", adminH.ApproveDelete)
	}

	// ── Reviews ────────────────────────────────────────────────────
	reviews := api.Group("/reviews")
	{
		reviews.POST("", authRequired, reviewH.Create)
		reviews.GET("/:restaurantId", reviewH.List)
		reviews.DELETE("/:id", authRequired, adminOnly, reviewH.Delete)
	}
	return nil
}
