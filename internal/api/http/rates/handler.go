package rates

import (
	"context"
	"errors"
	"net/http"
	"time"

	"service-cryptorates/internal"
	"service-cryptorates/internal/api/http/middleware"
	"service-cryptorates/internal/service/rates"

	"github.com/gin-gonic/gin"
)

type RatesService interface {
	GetSupportedPairs() *rates.SupportedPairs
	GetLast24Hours(ctx context.Context, pair string) (*rates.Last24HoursRates, error)
	GetByDay(ctx context.Context, pair, date string) (*rates.DayRates, error)
	GetLatest(ctx context.Context, pair string) (*rates.PairRate, error)
	GetLatestAll(ctx context.Context) (*rates.LatestRates, error)
	GetStatistics(ctx context.Context, pair, from, to string) (*rates.Statistics, error)
}

type Handler struct {
	rates      RatesService
	production bool
}

func New(r RatesService, production bool) *Handler {
	return &Handler{rates: r, production: production}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	group := rg.Group("/rates")
	{
		group.GET("/pairs", h.getPairs)
		group.GET("/last-24h", h.getLast24Hours)
		group.GET("/day", h.getByDay)
		group.GET("/latest", h.getLatest)
		group.GET("/statistics", h.getStatistics)
	}
}

type last24hQuery struct {
	Pair string `form:"pair" binding:"required"`
}

type dayQuery struct {
	Pair string `form:"pair" binding:"required"`
	Date string `form:"date" binding:"required"`
}

type statisticsQuery struct {
	Pair string `form:"pair" binding:"required"`
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
}

func (h *Handler) getPairs(c *gin.Context) {
	c.JSON(http.StatusOK, h.rates.GetSupportedPairs())
}

func (h *Handler) getLast24Hours(c *gin.Context) {
	var q last24hQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		WriteError(c, http.StatusBadRequest, "Bad Request", "pair query parameter is required")
		return
	}

	out, err := h.rates.GetLast24Hours(c.Request.Context(), q.Pair)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) getByDay(c *gin.Context) {
	var q dayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		WriteError(c, http.StatusBadRequest, "Bad Request", "pair and date query parameters are required")
		return
	}

	out, err := h.rates.GetByDay(c.Request.Context(), q.Pair, q.Date)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) getLatest(c *gin.Context) {
	pairRaw := c.Query("pair")

	// pair is optional here: without it the latest sample of every pair
	// that has data is returned
	if pairRaw == "" {
		out, err := h.rates.GetLatestAll(c.Request.Context())
		if err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
		return
	}

	out, err := h.rates.GetLatest(c.Request.Context(), pairRaw)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) getStatistics(c *gin.Context) {
	var q statisticsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		WriteError(c, http.StatusBadRequest, "Bad Request", "pair, from and to query parameters are required")
		return
	}

	out, err := h.rates.GetStatistics(c.Request.Context(), q.Pair, q.From, q.To)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// handleError maps domain errors onto the uniform envelope. Validation
// failures are client errors and are not logged as server errors.
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, internal.ErrInvalidDate):
		WriteError(c, http.StatusBadRequest, "Invalid date", err.Error())
	case errors.Is(err, internal.ErrNotFound):
		WriteError(c, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, internal.ErrUnsupportedPair), errors.Is(err, internal.ErrValidation):
		WriteError(c, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		middleware.LoggerFromContext(c).Error("request failed", "error", err)
		message := "internal server error"
		if !h.production {
			message = err.Error()
		}
		WriteError(c, http.StatusInternalServerError, "Internal Server Error", message)
	}
}

// WriteError renders the uniform error envelope shared by every endpoint.
func WriteError(c *gin.Context, status int, category, message string) {
	c.JSON(status, errorResponse{
		Error:     category,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	})
}
