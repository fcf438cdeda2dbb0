package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"yieldhunter/internal/models"
	"yieldhunter/internal/opportunity"
	"yieldhunter/internal/risk"
	"yieldhunter/internal/session"
)

type YieldHandler struct {
	Opportunities *opportunity.Store
	Risk          *risk.Manager
}

type recommendedResponse struct {
	RiskProfile   risk.Profile              `json:"riskProfile"`
	Opportunities []models.YieldOpportunity `json:"opportunities"`
}

func (h *YieldHandler) Register(r *gin.Engine) {
	g := r.Group("/api/yields")
	g.GET("", h.list)
	g.GET("/best", h.best)
	g.GET("/stats", h.stats)
	g.GET("/recommended", h.recommended)

	r.GET("/api/protocols", h.protocols)
}

// @Summary List yield opportunities
// @Tags yields
// @Param protocol query string false "protocol name or all"
// @Param sortBy query string false "apy|risk|tvl" default(apy)
// @Success 200 {array} models.YieldOpportunity
// @Router /api/yields [get]
func (h *YieldHandler) list(c *gin.Context) {
	sortBy := strings.TrimSpace(c.Query("sortBy"))
	if sortBy == "" {
		sortBy = risk.SortByAPY
	}
	Ok(c, risk.Rank(h.Opportunities.List(c.Query("protocol")), sortBy))
}

// @Summary Highest APY opportunity
// @Tags yields
// @Success 200 {object} models.YieldOpportunity
// @Failure 404 {object} errorResponse
// @Router /api/yields/best [get]
func (h *YieldHandler) best(c *gin.Context) {
	item, ok := h.Opportunities.Best()
	if !ok {
		Error(c, http.StatusNotFound, "no opportunities available")
		return
	}
	Ok(c, item)
}

// @Summary Aggregate opportunity stats
// @Tags yields
// @Success 200 {object} opportunity.Stats
// @Router /api/yields/stats [get]
func (h *YieldHandler) stats(c *gin.Context) {
	Ok(c, h.Opportunities.Stats())
}

// @Summary Opportunities matching the session's risk tolerance
// @Tags yields
// @Param limit query int false "max results" default(5)
// @Success 200 {object} recommendedResponse
// @Router /api/yields/recommended [get]
func (h *YieldHandler) recommended(c *gin.Context) {
	items, prof := h.Risk.Recommend(c.Request.Context(), session.ID(c), h.Opportunities.List(""), intQuery(c, "limit", 0))
	if items == nil {
		items = []models.YieldOpportunity{}
	}
	Ok(c, recommendedResponse{RiskProfile: prof, Opportunities: items})
}

// @Summary Supported protocols
// @Tags yields
// @Success 200 {array} models.ProtocolInfo
// @Router /api/protocols [get]
func (h *YieldHandler) protocols(c *gin.Context) {
	Ok(c, models.Protocols)
}
