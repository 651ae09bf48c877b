package handlers

import (
	"net/http"
	"strconv"

	"ledger-service/internal/services"
	"ledger-service/pkg/common"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateWallet(c *gin.Context) {
	var req services.CreateWalletDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	wallet, err := h.Wallets.CreateWallet(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	res := common.NewSuccessResponse(services.NewBalance(wallet), "Wallet created")
	res.Status = http.StatusCreated
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetWallet(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil || userID <= 0 {
		badRequest(c, errInvalidParam("userId"))
		return
	}

	balance, err := h.Wallets.GetBalance(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(balance, "Successful"))
}
