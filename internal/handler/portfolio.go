package handler

import (
	"github.com/gin-gonic/gin"

	"yieldhunter/internal/portfolio"
	"yieldhunter/internal/service"
	"yieldhunter/internal/session"
)

type PortfolioHandler struct {
	Aggregator *portfolio.Aggregator
	Recorder   *service.Recorder
}

type withdrawRequest struct {
	PositionID uint64 `json:"positionId"`
}

func (h *PortfolioHandler) Register(r *gin.Engine) {
	g := r.Group("/api/portfolio")
	g.GET("", h.get)
	g.GET("/summary", h.summary)
	g.POST("/invest", h.invest)
	g.POST("/withdraw", h.withdraw)
}

// @Summary Portfolio value, chart and active positions
// @Tags portfolio
// @Param timeRange query string false "1D|1W|1M|1Y"
// @Success 200 {object} portfolio.Summary
// @Router /api/portfolio [get]
func (h *PortfolioHandler) get(c *gin.Context) {
	Ok(c, h.Aggregator.Summarize(c.Request.Context(), session.ID(c), c.Query("timeRange")))
}

// @Summary Active position and protocol counts
// @Tags portfolio
// @Success 200 {object} portfolio.Counts
// @Router /api/portfolio/summary [get]
func (h *PortfolioHandler) summary(c *gin.Context) {
	Ok(c, h.Aggregator.SummaryCounts(c.Request.Context(), session.ID(c)))
}

// @Summary Invest in an opportunity
// @Tags portfolio
// @Accept json
// @Param body body service.InvestInput true "investment"
// @Success 201 {object} models.Position
// @Failure 400 {object} errorResponse
// @Router /api/portfolio/invest [post]
func (h *PortfolioHandler) invest(c *gin.Context) {
	var in service.InvestInput
	if !bindJSON(c, &in) {
		return
	}
	pos, err := h.Recorder.Invest(c.Request.Context(), session.ID(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	Created(c, pos)
}

// @Summary Withdraw an active position
// @Tags portfolio
// @Accept json
// @Param body body withdrawRequest true "position"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /api/portfolio/withdraw [post]
func (h *PortfolioHandler) withdraw(c *gin.Context) {
	var req withdrawRequest
	if !bindJSON(c, &req) {
		return
	}
	tx, err := h.Recorder.Withdraw(c.Request.Context(), session.ID(c), req.PositionID)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, tx)
}
