package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"yieldhunter/internal/service"
	"yieldhunter/internal/session"
)

type TransactionHandler struct {
	Recorder *service.Recorder
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *TransactionHandler) Register(r *gin.Engine) {
	g := r.Group("/api/transactions")
	g.GET("", h.list)
	g.POST("", h.create)
	g.PATCH("/:id/status", h.updateStatus)
}

// @Summary Transaction history
// @Tags transactions
// @Param filter query string false "all|invest|withdraw|completed|pending|failed"
// @Success 200 {array} models.Transaction
// @Router /api/transactions [get]
func (h *TransactionHandler) list(c *gin.Context) {
	items, err := h.Recorder.ListTransactions(c.Request.Context(), session.ID(c), c.Query("filter"))
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, items)
}

// @Summary Record a transaction
// @Tags transactions
// @Accept json
// @Param body body service.TransactionInput true "transaction"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} errorResponse
// @Router /api/transactions [post]
func (h *TransactionHandler) create(c *gin.Context) {
	var in service.TransactionInput
	if !bindJSON(c, &in) {
		return
	}
	tx, err := h.Recorder.CreateTransaction(c.Request.Context(), session.ID(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	Created(c, tx)
}

// @Summary Settle a pending transaction
// @Tags transactions
// @Accept json
// @Param id path int true "transaction id"
// @Param body body statusRequest true "completed or failed"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /api/transactions/{id}/status [patch]
func (h *TransactionHandler) updateStatus(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id")
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	tx, err := h.Recorder.UpdateStatus(c.Request.Context(), session.ID(c), id, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, tx)
}
