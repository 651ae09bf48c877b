package handlers

import (
	"net/http"

	"ledger-service/internal/services"
	"ledger-service/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const signatureHeader = "X-Webhook-Signature"

func (h *Handler) PaymentWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Webhooks.VerifySignature(body, c.GetHeader(signatureHeader)); err != nil {
		h.fail(c, err)
		return
	}

	var event services.PaymentEventDTO
	if err := binding.JSON.BindBody(body, &event); err != nil {
		badRequest(c, err)
		return
	}

	out, err := h.Webhooks.HandlePayment(c.Request.Context(), event)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(out, out.Message))
}
