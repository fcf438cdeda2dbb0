package handler

import (
	"github.com/gin-gonic/gin"

	"yieldhunter/internal/risk"
	"yieldhunter/internal/service"
	"yieldhunter/internal/session"
	"yieldhunter/internal/telegram"
)

type UserHandler struct {
	Preferences *service.PreferenceService
	Risk        *risk.Manager
	Telegram    *telegram.Linker
}

type telegramConnectResponse struct {
	Success      bool   `json:"success"`
	TelegramLink string `json:"telegramLink"`
}

func (h *UserHandler) Register(r *gin.Engine) {
	g := r.Group("/api/user")
	g.GET("/preferences", h.getPreferences)
	g.PATCH("/preferences", h.updatePreferences)
	g.GET("/risk-profile", h.riskProfile)
	g.GET("/telegram-status", h.telegramStatus)

	r.POST("/api/telegram/connect", h.telegramConnect)
}

// @Summary Current preferences or defaults
// @Tags user
// @Success 200 {object} models.UserPreference
// @Router /api/user/preferences [get]
func (h *UserHandler) getPreferences(c *gin.Context) {
	pref, err := h.Preferences.Get(c.Request.Context(), session.ID(c))
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, pref)
}

// @Summary Merge a partial preference update
// @Tags user
// @Accept json
// @Param body body service.PreferencePatch true "fields to change"
// @Success 200 {object} models.UserPreference
// @Failure 400 {object} errorResponse
// @Router /api/user/preferences [patch]
func (h *UserHandler) updatePreferences(c *gin.Context) {
	var patch service.PreferencePatch
	if !bindJSON(c, &patch) {
		return
	}
	pref, err := h.Preferences.Update(c.Request.Context(), session.ID(c), patch)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, pref)
}

// @Summary Risk gauge for the session
// @Tags user
// @Success 200 {object} risk.Profile
// @Router /api/user/risk-profile [get]
func (h *UserHandler) riskProfile(c *gin.Context) {
	prof, err := h.Risk.Profile(c.Request.Context(), session.ID(c))
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, prof)
}

// @Summary Telegram link status
// @Tags user
// @Success 200 {object} telegram.Status
// @Router /api/user/telegram-status [get]
func (h *UserHandler) telegramStatus(c *gin.Context) {
	st, err := h.Telegram.Status(c.Request.Context(), session.ID(c))
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, st)
}

// @Summary Create a one-time Telegram deep link
// @Tags user
// @Success 200 {object} telegramConnectResponse
// @Router /api/telegram/connect [post]
func (h *UserHandler) telegramConnect(c *gin.Context) {
	link, err := h.Telegram.Connect(c.Request.Context(), session.ID(c))
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, telegramConnectResponse{Success: true, TelegramLink: link.Link})
}
