package handlers

import (
	"fmt"
	"net/http"

	"ledger-service/internal/consumers"
	"ledger-service/internal/services"
	"ledger-service/pkg/common"

	"github.com/gin-gonic/gin"
)

const idempotencyHeader = "Idempotency-Key"

func errInvalidParam(name string) error {
	return fmt.Errorf("invalid %s", name)
}

// ProcessTransaction applies one mutation. With ?async=true it is queued for
// the worker instead and answered with 202.
func (h *Handler) ProcessTransaction(c *gin.Context) {
	var req consumers.MutationDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(idempotencyHeader)
	}

	if c.Query("async") == "true" {
		h.enqueue(c, req)
		return
	}

	ledgerReq, err := req.ToRequest()
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.Ledger.Process(c.Request.Context(), ledgerReq)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"balance": res.Balance,
		"entry":   res.Entry,
		"entries": res.Entries,
		"wallet":  services.NewBalance(res.Wallet),
	}, "Successful"))
}

func (h *Handler) enqueue(c *gin.Context, req consumers.MutationDTO) {
	if h.Queue == nil {
		c.JSON(http.StatusServiceUnavailable, common.NewErrorResponse("Asynchronous processing is disabled", "QUEUE_UNAVAILABLE", http.StatusServiceUnavailable))
		return
	}
	taskID, err := h.Queue.EnqueueMutation(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	res := common.NewSuccessResponse(gin.H{"taskId": taskID}, "Queued")
	res.Status = http.StatusAccepted
	c.JSON(http.StatusAccepted, res)
}

func (h *Handler) GetTransactions(c *gin.Context) {
	var req services.UserTransactionDTO
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.Wallets.GetUserTransactions(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
