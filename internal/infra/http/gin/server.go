package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"hlopg/internal/infra/config"
	"hlopg/internal/infra/obs"
)

type HostelsHTTP interface {
	City(c *gin.Context)
	Detail(c *gin.Context)
	Reviews(c *gin.Context)
	SubmitReview(c *gin.Context)
	FoodMenu(c *gin.Context)
}

type DraftsHTTP interface {
	Open(c *gin.Context)
	Get(c *gin.Context)
	SelectTier(c *gin.Context)
	PriceMode(c *gin.Context)
	MoveIn(c *gin.Context)
	Duration(c *gin.Context)
	Terms(c *gin.Context)
	NextImage(c *gin.Context)
	PrevImage(c *gin.Context)
	ShowImage(c *gin.Context)
	Continue(c *gin.Context)
	Close(c *gin.Context)
}

type Handlers struct {
	Hostels        HostelsHTTP
	Drafts         DraftsHTTP
	Auth           AuthHTTP
	Me             MeHTTP
	AuthMiddleware gin.HandlerFunc
	// AuthLimiter guards the unauthenticated auth endpoints.
	AuthLimiter gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.Trace())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if obsMW.Metrics != nil {
		router.GET("/metrics", obsMW.Metrics.Handler())
	}
	registerSwaggerRoutes(router)

	api := router.Group("/api/v1")
	if h.Hostels != nil {
		api.GET("/cities/:city/hostels", h.Hostels.City)
		api.GET("/hostels/:id", h.Hostels.Detail)
		api.GET("/hostels/:id/reviews", h.Hostels.Reviews)
		api.POST("/hostels/:id/reviews", h.Hostels.SubmitReview)
		api.GET("/hostels/:id/food-menu", h.Hostels.FoodMenu)
	}
	if h.Drafts != nil {
		api.POST("/hostels/:id/drafts", h.Drafts.Open)
		drafts := api.Group("/drafts/:id")
		drafts.GET("", h.Drafts.Get)
		drafts.DELETE("", h.Drafts.Close)
		drafts.PUT("/tier", h.Drafts.SelectTier)
		drafts.PUT("/price-mode", h.Drafts.PriceMode)
		drafts.PUT("/move-in", h.Drafts.MoveIn)
		drafts.PUT("/duration", h.Drafts.Duration)
		drafts.PUT("/terms", h.Drafts.Terms)
		drafts.POST("/images/next", h.Drafts.NextImage)
		drafts.POST("/images/prev", h.Drafts.PrevImage)
		drafts.PUT("/images/active", h.Drafts.ShowImage)
		drafts.POST("/continue", h.Drafts.Continue)
	}
	if h.Auth != nil {
		authGroup := api.Group("/auth")
		public := authGroup.Group("")
		if h.AuthLimiter != nil {
			public.Use(h.AuthLimiter)
		}
		public.POST("/register/student", h.Auth.RegisterStudent)
		public.POST("/register/owner", h.Auth.RegisterOwner)
		public.POST("/verify-otp", h.Auth.VerifyOTP)
		public.POST("/resend-otp", h.Auth.ResendOTP)
		public.POST("/login/student", h.Auth.LoginStudent)
		public.POST("/login/owner", h.Auth.LoginOwner)
		authGroup.POST("/logout", h.Auth.Logout)
		authGroup.GET("/me", h.Auth.Me)
	}
	if h.Me != nil {
		meGroup := api.Group("/me")
		meGroup.GET("/bookings", h.Me.ListBookings)
		meGroup.POST("/bookings/:id/cancel", h.Me.CancelBooking)
		meGroup.PUT("/profile", h.Me.UpdateProfile)
		meGroup.POST("/password", h.Me.ChangePassword)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
