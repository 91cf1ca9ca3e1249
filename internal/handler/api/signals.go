package api

import (
	"errors"
	"net/http"
	"time"

	models "StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
	"StructPulse/internal/memory"
	"StructPulse/internal/service/metrics"
	"StructPulse/internal/service/ratelimit"
	"StructPulse/internal/usecase"
	xhttp "StructPulse/pkg/http"
	xlogger "StructPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalsHandler serves the engine's HTTP surface: recent signals, memory
// statistics, success rates, and outcome resolution.
type SignalsHandler struct {
	logger  *xlogger.Logger
	log     *usecase.SignalLog
	stats   *usecase.MemoryStatsUseCase
	outcome *usecase.OutcomeUseCase
	rl      *ratelimit.Limiter
}

func NewSignalsHandler(logger *xlogger.Logger, log *usecase.SignalLog, stats *usecase.MemoryStatsUseCase, outcome *usecase.OutcomeUseCase) *SignalsHandler {
	metrics.Register()
	return &SignalsHandler{logger: logger, log: log, stats: stats, outcome: outcome, rl: ratelimit.New()}
}

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signals/latest", h.LatestSignals)
	g.GET("/memory/stats", h.MemoryStats)
	g.GET("/memory/success-rate", h.SuccessRate)
	g.POST("/outcome", h.SetOutcome)
}

func (h *SignalsHandler) LatestSignals(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("latest_signals").Observe(time.Since(start).Seconds()) }()

	req := &models.LatestSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sigs := h.log.Latest(req.Limit, req.Symbol, "")
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":  req.Symbol,
		"count":   len(sigs),
		"signals": sigs,
	})
}

func (h *SignalsHandler) MemoryStats(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("memory_stats").Observe(time.Since(start).Seconds()) }()

	req := &models.MemoryStatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	st, err := h.stats.Stats(c.Request().Context(), req.Symbol, domrepo.NormalizeTimeframe(req.TF))
	if err != nil {
		metrics.APIErrors.WithLabelValues("memory_stats").Inc()
		h.logger.Error("memory stats error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *SignalsHandler) SuccessRate(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("success_rate").Observe(time.Since(start).Seconds()) }()

	req := &models.SuccessRateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.stats.SuccessRate(c.Request().Context(), req.Symbol, domrepo.NormalizeTimeframe(req.TF), req.Direction)
	if err != nil {
		metrics.APIErrors.WithLabelValues("success_rate").Inc()
		h.logger.Error("success rate error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// SetOutcome resolves one pending break event. Rate limited per remote since
// outcome writes mutate feedback history.
func (h *SignalsHandler) SetOutcome(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("set_outcome").Observe(time.Since(start).Seconds()) }()

	if !h.rl.Allow(c.RealIP()+":outcome", 10, 5) {
		h.logger.Warn("set outcome rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	req := &models.SetOutcomeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	err := h.outcome.SetOutcome(c.Request().Context(), req.EventID, models.Outcome(req.Outcome))
	switch {
	case err == nil:
		metrics.OutcomeResolutions.WithLabelValues(req.Outcome).Inc()
		return xhttp.SuccessResponse(c, map[string]string{"event_id": req.EventID, "outcome": req.Outcome})
	case errors.Is(err, memory.ErrAlreadySet):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_CONFLICT", "", "outcome already set", http.StatusConflict).WithError(err))
	case errors.Is(err, memory.ErrNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("event %s not found", req.EventID).WithError(err))
	default:
		metrics.APIErrors.WithLabelValues("set_outcome").Inc()
		h.logger.Error("set outcome error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
}
