package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ledger-service/internal/consumers"
	"ledger-service/internal/ledger"
	"ledger-service/internal/services"
	"ledger-service/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MutationQueue defers a mutation to the worker.
type MutationQueue interface {
	EnqueueMutation(ctx context.Context, dto consumers.MutationDTO) (string, error)
}

type Handler struct {
	Ledger      *ledger.Processor
	Wallets     *services.WalletService
	Withdrawals *services.WithdrawalService
	Webhooks    *services.PaymentWebhookService
	Queue       MutationQueue
	Logger      *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.Logger))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome To Wallet Ledger service",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/wallets", h.CreateWallet)
	r.GET("/wallets/:userId", h.GetWallet)

	r.POST("/transactions", h.ProcessTransaction)
	r.GET("/transactions", h.GetTransactions)

	r.POST("/withdrawals", h.RequestWithdrawal)
	r.GET("/withdrawals", h.ListWithdrawals)
	r.POST("/withdrawals/:id/approve", h.ApproveWithdrawal)
	r.POST("/withdrawals/:id/reject", h.RejectWithdrawal)

	r.POST("/webhooks/payments", h.PaymentWebhook)
	return r
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{ledger.ErrWalletNotFound, http.StatusNotFound, "WALLET_NOT_FOUND"},
	{ledger.ErrEntryNotFound, http.StatusNotFound, "ENTRY_NOT_FOUND"},
	{ledger.ErrInsufficientWithdrawable, http.StatusBadRequest, "INSUFFICIENT_WITHDRAWABLE"},
	{ledger.ErrInsufficientBalance, http.StatusBadRequest, "INSUFFICIENT_BALANCE"},
	{ledger.ErrInvalidCashType, http.StatusBadRequest, "INVALID_CASH_TYPE"},
	{ledger.ErrUnsupportedCategory, http.StatusBadRequest, "UNSUPPORTED_CATEGORY"},
	{ledger.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{ledger.ErrMissingCounterparty, http.StatusBadRequest, "MISSING_COUNTERPARTY"},
	{services.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
	{ledger.ErrInvalidStateTransition, http.StatusConflict, "INVALID_STATE_TRANSITION"},
	{ledger.ErrDuplicateRequest, http.StatusConflict, "DUPLICATE_REQUEST"},
	{services.ErrWalletExists, http.StatusConflict, "WALLET_EXISTS"},
	{services.ErrInvalidSignature, http.StatusUnauthorized, "INVALID_SIGNATURE"},
}

// errorStatus maps an error to its HTTP status and response code.
func errorStatus(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		message = "Something went wrong, please try again"
	}
	c.JSON(status, common.NewErrorResponse(message, code, status))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error(), "INVALID_REQUEST", http.StatusBadRequest))
}
