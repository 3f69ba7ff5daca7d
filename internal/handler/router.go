package handler

import (
	"net/http"

	"github.com/asterdex/astergate/internal/config"
	"github.com/asterdex/astergate/internal/middleware"
	"github.com/asterdex/astergate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDeps struct {
	Signing     *service.SigningService
	Audit       *service.AuditService
	Idempotency middleware.IdempotencyStore
	Limiters    *middleware.ClientLimiters
}

// RegisterRoutes mounts the gateway on r. The audit middleware wraps the
// error handler so error responses are captured too.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps RouterDeps) {
	r.Use(middleware.MetricsMiddleware())
	if deps.Audit != nil {
		r.Use(middleware.AuditMiddleware(deps.Audit))
	}
	r.Use(middleware.ErrorHandler())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "astergate"})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	actionHandler := NewActionHandler(deps.Signing)
	accountHandler := NewAccountHandler(deps.Signing)

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg))
	v1.Use(middleware.RateLimitMiddleware(deps.Limiters))
	{
		v1.GET("/wallet", accountHandler.GetWallet)
		v1.POST("/actions/:action/typed-data", actionHandler.TypedData)
		v1.POST("/actions/:action/payload", actionHandler.Payload)

		signing := v1.Group("")
		signing.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly))
		signing.Use(middleware.IdempotencyMiddleware(deps.Idempotency))
		signing.POST("/actions/:action/sign", actionHandler.Sign)
		signing.POST("/messages/sign", actionHandler.SignMessage)

		if deps.Audit != nil {
			auditHandler := NewAuditHandler(deps.Audit)
			v1.GET("/audit", auditHandler.List)
		}
	}
}
