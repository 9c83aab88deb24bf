package funding_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/funding-audit-ledger/internal/funding_api/handler"
	"github.com/funding-audit-ledger/internal/funding_api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	recordHandler *handler.RecordHandler,
	auditHandler *handler.AuditHandler,
	withdrawalHandler *handler.WithdrawalHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Actor())

	v1 := r.Group("/api/v1")
	{
		records := v1.Group("/records/:kind")
		{
			records.PUT("", recordHandler.SaveDraft)
			records.GET("", recordHandler.List)
			records.GET("/:id", recordHandler.GetByID)
			records.DELETE("/:id", recordHandler.Delete)
			records.POST("/:id/submit", recordHandler.Submit)
			records.GET("/:id/history", recordHandler.History)
		}

		reconciliation := v1.Group("/reconciliation")
		{
			reconciliation.GET("", auditHandler.View)
			reconciliation.POST("/decisions", auditHandler.Propose)
			reconciliation.POST("/validate", auditHandler.Validate)
			reconciliation.PUT("/drafts", auditHandler.SaveDraft)
			reconciliation.POST("/submit", auditHandler.Submit)
			reconciliation.POST("/reject", auditHandler.Reject)
		}

		withdrawals := v1.Group("/withdrawals")
		{
			withdrawals.POST("", withdrawalHandler.Request)
			withdrawals.GET("", withdrawalHandler.List)
			withdrawals.DELETE("/records/:recordId", withdrawalHandler.Cancel)
			withdrawals.POST("/:id/decision", withdrawalHandler.Decide)
		}

		v1.GET("/withdrawal-policies", withdrawalHandler.Policies)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
