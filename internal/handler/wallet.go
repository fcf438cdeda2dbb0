package handler

import (
	"github.com/gin-gonic/gin"

	"yieldhunter/internal/service"
	"yieldhunter/internal/session"
	"yieldhunter/internal/wallet"
)

type WalletHandler struct {
	Wallets       *wallet.Manager
	Subscriptions *service.SubscriptionService
}

func (h *WalletHandler) Register(r *gin.Engine) {
	g := r.Group("/api/wallet")
	g.GET("/status", h.status)
	g.GET("/info", h.info)
	g.POST("/connect", h.connect)
	g.POST("/disconnect", h.disconnect)
	g.POST("/subscribe", h.subscribe)
}

// @Summary Wallet connection status
// @Tags wallet
// @Success 200 {object} wallet.Status
// @Router /api/wallet/status [get]
func (h *WalletHandler) status(c *gin.Context) {
	Ok(c, h.Wallets.Status(c.Request.Context(), session.ID(c)))
}

// @Summary Wallet balances
// @Tags wallet
// @Success 200 {object} wallet.Info
// @Failure 401 {object} errorResponse
// @Router /api/wallet/info [get]
func (h *WalletHandler) info(c *gin.Context) {
	info, err := h.Wallets.Info(c.Request.Context(), session.ID(c))
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, info)
}

// @Summary Connect a wallet to the session
// @Tags wallet
// @Success 200 {object} wallet.ConnectResult
// @Router /api/wallet/connect [post]
func (h *WalletHandler) connect(c *gin.Context) {
	res, err := h.Wallets.Connect(c.Request.Context(), session.ID(c))
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, res)
}

// @Summary Disconnect the session's wallet
// @Tags wallet
// @Success 200 {object} map[string]bool
// @Router /api/wallet/disconnect [post]
func (h *WalletHandler) disconnect(c *gin.Context) {
	if err := h.Wallets.Disconnect(c.Request.Context(), session.ID(c)); err != nil {
		fail(c, err)
		return
	}
	Ok(c, gin.H{"success": true})
}

// @Summary Record a subscription payment
// @Tags wallet
// @Accept json
// @Param body body service.SubscriptionInput true "payment"
// @Success 201 {object} models.Subscription
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Router /api/wallet/subscribe [post]
func (h *WalletHandler) subscribe(c *gin.Context) {
	sid := session.ID(c)
	addr, err := h.Wallets.Address(c.Request.Context(), sid)
	if err != nil {
		fail(c, err)
		return
	}
	var in service.SubscriptionInput
	if !bindJSON(c, &in) {
		return
	}
	if in.WalletAddress == "" {
		in.WalletAddress = addr
	}
	sub, err := h.Subscriptions.Record(c.Request.Context(), sid, in)
	if err != nil {
		fail(c, err)
		return
	}
	Created(c, sub)
}
