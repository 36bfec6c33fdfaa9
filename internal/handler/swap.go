package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dexgate/dexgate/internal/model"
	"github.com/dexgate/dexgate/internal/pkg/apperrors"
	"github.com/dexgate/dexgate/internal/service"
)

type SwapHandler struct {
	svc      *service.SettlementService
	notifier *service.Notifier
}

func NewSwapHandler(svc *service.SettlementService, notifier *service.Notifier) *SwapHandler {
	return &SwapHandler{svc: svc, notifier: notifier}
}

func (h *SwapHandler) bindSwapRequest(c *gin.Context) (*model.SwapRequest, bool) {
	var req model.SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return nil, false
	}
	return &req, true
}

// Price returns an indicative price for the pair.
func (h *SwapHandler) Price(c *gin.Context) {
	req, ok := h.bindSwapRequest(c)
	if !ok {
		return
	}
	quote, err := h.svc.Price(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// Quote returns a firm, executable quote.
func (h *SwapHandler) Quote(c *gin.Context) {
	req, ok := h.bindSwapRequest(c)
	if !ok {
		return
	}
	quote, err := h.svc.Quote(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// Swap executes a settlement attempt end to end.
func (h *SwapHandler) Swap(c *gin.Context) {
	req, ok := h.bindSwapRequest(c)
	if !ok {
		return
	}
	receipt, err := h.svc.ExecuteSwap(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// GetSwap returns a persisted settlement record, augmented with the live
// relayer state while a gasless trade is still pending.
func (h *SwapHandler) GetSwap(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		_ = c.Error(apperrors.NewInvalidRequest("settlement id is required"))
		return
	}

	rec, err := h.svc.GetSettlement(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := gin.H{"settlement": rec}
	if rec.TradeHash != "" {
		if state, err := h.svc.TradeState(c.Request.Context(), rec.TradeHash); err == nil {
			resp["trade_state"] = state
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ListSwaps returns the most recent settlement records.
func (h *SwapHandler) ListSwaps(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		_ = c.Error(apperrors.NewInvalidRequest("limit must be an integer"))
		return
	}

	records, err := h.svc.ListSettlements(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if records == nil {
		records = []*model.SettlementRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"settlements": records})
}

// GaslessSupported reports gasless eligibility for a token on a chain.
func (h *SwapHandler) GaslessSupported(c *gin.Context) {
	chainID, err := strconv.ParseInt(c.Query("chain_id"), 10, 64)
	if err != nil {
		_ = c.Error(apperrors.NewInvalidRequest("chain_id must be an integer"))
		return
	}
	token := c.Query("token")

	supported, err := h.svc.GaslessSupported(c.Request.Context(), chainID, token)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chain_id": chainID, "token": token, "supported": supported})
}

// Notifications drains accumulated settlement notifications.
func (h *SwapHandler) Notifications(c *gin.Context) {
	notifications := h.notifier.Drain()
	if notifications == nil {
		notifications = []model.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}
