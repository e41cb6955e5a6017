package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jamiihub/jamii-portal-backend/internal/config"
	"github.com/jamiihub/jamii-portal-backend/internal/handlers"
	"github.com/jamiihub/jamii-portal-backend/internal/middleware"
)

// HandlerDependencies holds all the handlers needed for routing
type HandlerDependencies struct {
	PaymentHandler      *handlers.PaymentHandler
	MemberHandler       *handlers.MemberHandler
	ContributionHandler *handlers.ContributionHandler
	WelfareHandler      *handlers.WelfareHandler
	AnnouncementHandler *handlers.AnnouncementHandler
	NotificationHandler *handlers.NotificationHandler
}

// SetupRouter configures all the routes for the API
func SetupRouter(cfg *config.Config, deps *HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedHosts))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// public routes: auth, provider callbacks, announcements
	auth := v1.Group("/auth")
	{
		auth.POST("/register", deps.MemberHandler.Register)
		auth.POST("/login", deps.MemberHandler.Login)
	}

	callbacks := v1.Group("/callbacks")
	{
		callbacks.POST("/mpesa", deps.PaymentHandler.MpesaCallback)
		callbacks.GET("/pesapal/ipn", deps.PaymentHandler.PesapalIPN)
		callbacks.POST("/pesapal/ipn", deps.PaymentHandler.PesapalIPN)
	}

	v1.GET("/announcements", deps.AnnouncementHandler.List)

	// authenticated routes
	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		payments := authed.Group("/payments")
		{
			payments.POST("/mpesa/stkpush", deps.PaymentHandler.InitiateSTKPush)
			payments.POST("/pesapal/orders", deps.PaymentHandler.SubmitPesapalOrder)
			payments.POST("/pesapal/status", deps.PaymentHandler.QueryPesapalStatus)
			payments.GET("/:correlationId", deps.PaymentHandler.GetStatus)
			payments.GET("/:correlationId/stream", deps.PaymentHandler.StreamStatus)
		}

		contributions := authed.Group("/contributions")
		{
			contributions.POST("", deps.ContributionHandler.Create)
			contributions.GET("/mine", deps.ContributionHandler.ListMine)
			contributions.GET("/:id", deps.ContributionHandler.Get)
		}

		welfare := authed.Group("/welfare")
		{
			welfare.POST("", deps.WelfareHandler.Create)
			welfare.GET("", deps.WelfareHandler.List)
			welfare.GET("/:id", deps.WelfareHandler.Get)
		}

		notifications := authed.Group("/notifications")
		{
			notifications.GET("", deps.NotificationHandler.ListMine)
			notifications.POST("/:id/read", deps.NotificationHandler.MarkRead)
		}

		authed.GET("/members/me", deps.MemberHandler.GetProfile)

		// admin routes
		admin := authed.Group("")
		admin.Use(middleware.AdminMiddleware())
		{
			admin.GET("/payments", deps.PaymentHandler.ListTransactions)
			admin.GET("/members", deps.MemberHandler.ListMembers)
			admin.GET("/contributions", deps.ContributionHandler.List)
			admin.POST("/welfare/:id/approve", deps.WelfareHandler.Approve)
			admin.POST("/welfare/:id/close", deps.WelfareHandler.Close)
			admin.POST("/announcements", deps.AnnouncementHandler.Create)
			admin.DELETE("/announcements/:id", deps.AnnouncementHandler.Delete)
		}
	}

	return router
}
