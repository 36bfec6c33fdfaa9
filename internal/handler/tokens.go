package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dexgate/dexgate/internal/model"
	"github.com/dexgate/dexgate/internal/pkg/apperrors"
	"github.com/dexgate/dexgate/internal/service"
)

type tokenRequest struct {
	ChainID  int64  `json:"chain_id" binding:"required"`
	Address  string `json:"address" binding:"required"`
	Symbol   string `json:"symbol" binding:"required"`
	Decimals int    `json:"decimals" binding:"required,min=0,max=36"`
}

// TokensHandler manages the token metadata registry.
type TokensHandler struct {
	registry *service.TokenRegistry
	store    service.TokenStore
}

func NewTokensHandler(registry *service.TokenRegistry, store service.TokenStore) *TokensHandler {
	return &TokensHandler{registry: registry, store: store}
}

// Create registers token metadata for symbol display and limit math.
func (h *TokensHandler) Create(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	token := model.Token{
		ChainID:  req.ChainID,
		Address:  req.Address,
		Symbol:   req.Symbol,
		Decimals: req.Decimals,
	}
	if err := h.registry.Register(c.Request.Context(), h.store, token); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, token)
}

// Get returns the registered metadata for one token.
func (h *TokensHandler) Get(c *gin.Context) {
	chainID, token, ok := parseTokenQuery(c)
	if !ok {
		return
	}
	t, found := h.registry.Lookup(chainID, token)
	if !found {
		_ = c.Error(apperrors.New(apperrors.ErrNotFound, "token is not registered", nil))
		return
	}
	c.JSON(http.StatusOK, t)
}

func parseTokenQuery(c *gin.Context) (int64, string, bool) {
	chainID, err := strconv.ParseInt(c.Query("chain_id"), 10, 64)
	if err != nil {
		_ = c.Error(apperrors.NewInvalidRequest("chain_id must be an integer"))
		return 0, "", false
	}
	address := c.Query("address")
	if address == "" {
		_ = c.Error(apperrors.NewInvalidRequest("address is required"))
		return 0, "", false
	}
	return chainID, address, true
}
