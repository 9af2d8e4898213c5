package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"service-cryptorates/internal/api/http/middleware"
	ratesapi "service-cryptorates/internal/api/http/rates"
	"service-cryptorates/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	DB         Pinger
	Rates      ratesapi.RatesService
	Production bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.CustomRecovery(handlePanic(cfg.Production)))
	router.Use(middleware.RequestLogger(cfg.Logger))
	router.Use(middleware.Metrics(cfg.Metrics))

	router.GET("/health", health(cfg.DB))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	ratesapi.New(cfg.Rates, cfg.Production).Register(v1)

	return router
}

// handlePanic answers a recovered handler panic with the same error
// envelope the endpoints use instead of gin's bare 500.
func handlePanic(production bool) gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		middleware.LoggerFromContext(c).Error("panic recovered", "panic", recovered)

		message := "internal server error"
		if !production {
			message = fmt.Sprintf("%v", recovered)
		}
		ratesapi.WriteError(c, http.StatusInternalServerError, "Internal Server Error", message)
		c.Abort()
	}
}

func health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
