package handlers

import (
	"net/http"
	"strconv"

	"ledger-service/internal/services"
	"ledger-service/pkg/common"

	"github.com/gin-gonic/gin"
)

func (h *Handler) RequestWithdrawal(c *gin.Context) {
	var req services.WithdrawRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(idempotencyHeader)
	}

	res, err := h.Withdrawals.RequestWithdrawal(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(res, "Successful"))
}

func (h *Handler) ListWithdrawals(c *gin.Context) {
	var req services.ListWithdrawalRequestsDTO
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.Withdrawals.ListWithdrawalRequests(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func entryIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		badRequest(c, errInvalidParam("withdrawal id"))
		return 0, false
	}
	return id, true
}

func (h *Handler) ApproveWithdrawal(c *gin.Context) {
	id, ok := entryIDParam(c)
	if !ok {
		return
	}
	entry, err := h.Withdrawals.ApproveWithdrawal(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(entry, "Withdrawal approved"))
}

type rejectWithdrawalRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectWithdrawal(c *gin.Context) {
	id, ok := entryIDParam(c)
	if !ok {
		return
	}
	var req rejectWithdrawalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	res, err := h.Withdrawals.RejectWithdrawal(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"refund":  res.Entry,
		"balance": res.Balance,
		"wallet":  services.NewBalance(res.Wallet),
	}, "Withdrawal rejected"))
}
