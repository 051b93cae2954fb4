package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/streamvault-backend/internal/handlers"
	"github.com/yungbote/streamvault-backend/internal/middleware"
	"github.com/yungbote/streamvault-backend/internal/observability"
)

type RouterConfig struct {
	AuthMiddleware   *middleware.AuthMiddleware
	AgreementHandler *handlers.AgreementHandler
	ProposalHandler  *handlers.ProposalHandler
	AdminHandler     *handlers.AdminHandler
	Metrics          *observability.Metrics
	MetricsEnabled   bool
	AllowOrigins     []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.GinMiddleware())
	}

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	if cfg.MetricsEnabled && cfg.Metrics != nil {
		router.GET("/metrics", cfg.Metrics.GinHandler())
	}

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Agreements
	api.POST("/agreements", cfg.AgreementHandler.Create)
	api.GET("/agreements", cfg.AgreementHandler.List)
	api.GET("/agreements/:id", cfg.AgreementHandler.Get)
	api.GET("/agreements/:id/events", cfg.AgreementHandler.Events)
	api.POST("/agreements/:id/withdraw", cfg.AgreementHandler.Withdraw)
	api.POST("/agreements/:id/cancel", cfg.AgreementHandler.Cancel)
	api.POST("/agreements/:id/pause", cfg.AgreementHandler.Pause)
	api.POST("/agreements/:id/unpause", cfg.AgreementHandler.Unpause)
	api.POST("/agreements/:id/topup", cfg.AgreementHandler.TopUp)
	api.POST("/agreements/:id/transfer-receiver", cfg.AgreementHandler.TransferReceiver)
	api.POST("/agreements/:id/transfer-receipt", cfg.AgreementHandler.TransferReceipt)
	api.POST("/agreements/:id/arbiter", cfg.AgreementHandler.SetArbiter)
	api.POST("/agreements/:id/freeze", cfg.AgreementHandler.Freeze)
	api.POST("/agreements/:id/resolve", cfg.AgreementHandler.ResolveDispute)
	api.POST("/agreements/:id/clawback", cfg.AgreementHandler.Clawback)

	// Proposals
	api.POST("/proposals", cfg.ProposalHandler.Create)
	api.GET("/proposals/:id", cfg.ProposalHandler.Get)
	api.GET("/proposals/:id/events", cfg.ProposalHandler.Events)
	api.POST("/proposals/:id/approve", cfg.ProposalHandler.Approve)

	// Admin
	admin := api.Group("/admin")
	admin.POST("/roles/grant", cfg.AdminHandler.GrantRole)
	admin.POST("/roles/revoke", cfg.AdminHandler.RevokeRole)
	admin.GET("/roles/:role", cfg.AdminHandler.ListRole)
	admin.POST("/restrictions", cfg.AdminHandler.Restrict)
	admin.DELETE("/restrictions", cfg.AdminHandler.Unrestrict)
	admin.GET("/restrictions", cfg.AdminHandler.ListRestricted)
	admin.POST("/assets", cfg.AdminHandler.AllowAsset)
	admin.DELETE("/assets", cfg.AdminHandler.DisallowAsset)
	admin.POST("/vaults/approve", cfg.AdminHandler.ApproveVault)
	admin.POST("/migrate", cfg.AdminHandler.Migrate)

	return router
}
