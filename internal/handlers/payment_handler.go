package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/services"
	"github.com/jamiihub/jamii-portal-backend/internal/utils"
	"github.com/jamiihub/jamii-portal-backend/pkg/daraja"
)

// PaymentHandler handles payment-related API endpoints
type PaymentHandler struct {
	paymentService services.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// InitiateSTKPush handles POST /api/v1/payments/mpesa/stkpush
func (h *PaymentHandler) InitiateSTKPush(c *gin.Context) {
	var req models.STKPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txn, err := h.paymentService.InitiateSTKPush(c.Request.Context(), &req)
	if err != nil {
		var validationErr *utils.ValidationError
		switch {
		case errors.As(err, &validationErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
		case errors.Is(err, services.ErrProviderRejected):
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider rejected the request"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate payment"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"correlationId": txn.CorrelationID,
		"status":        txn.Status,
	})
}

// SubmitPesapalOrder handles POST /api/v1/payments/pesapal/orders
func (h *PaymentHandler) SubmitPesapalOrder(c *gin.Context) {
	var req models.PesapalOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txn, redirectURL, err := h.paymentService.SubmitPesapalOrder(c.Request.Context(), &req)
	if err != nil {
		var validationErr *utils.ValidationError
		switch {
		case errors.As(err, &validationErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
		case errors.Is(err, services.ErrProviderRejected):
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider rejected the request"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit order"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"correlationId": txn.CorrelationID,
		"status":        txn.Status,
		"redirectUrl":   redirectURL,
	})
}

// MpesaCallback handles POST /api/v1/callbacks/mpesa. Daraja only inspects
// the response body, so every outcome is HTTP 200; a nonzero ResultCode asks
// the provider to redeliver.
func (h *PaymentHandler) MpesaCallback(c *gin.Context) {
	var envelope daraja.CallbackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		slog.Warn("unparseable mpesa callback", "error", err)
		c.JSON(http.StatusOK, daraja.Nack("invalid payload"))
		return
	}

	cb := envelope.Body.StkCallback
	err := h.paymentService.HandleMpesaCallback(c.Request.Context(), &cb)
	switch {
	case err == nil, errors.Is(err, services.ErrUnknownCorrelationID):
		// unknown ids are logged internally; the provider gets a neutral ack
		// so it stops redelivering a callback we can never apply
		c.JSON(http.StatusOK, daraja.Ack())
	default:
		slog.Error("mpesa callback processing failed", "correlationId", cb.CheckoutRequestID, "error", err)
		c.JSON(http.StatusOK, daraja.Nack("processing failed"))
	}
}

// PesapalIPN handles GET and POST /api/v1/callbacks/pesapal/ipn
func (h *PaymentHandler) PesapalIPN(c *gin.Context) {
	orderTrackingID := c.Query("OrderTrackingId")
	if orderTrackingID == "" {
		var body struct {
			OrderTrackingID string `json:"OrderTrackingId"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			orderTrackingID = body.OrderTrackingID
		}
	}
	if orderTrackingID == "" {
		c.JSON(http.StatusOK, gin.H{"status": "500", "error": "missing OrderTrackingId"})
		return
	}

	err := h.paymentService.HandlePesapalIPN(c.Request.Context(), orderTrackingID)
	switch {
	case err == nil, errors.Is(err, services.ErrUnknownCorrelationID):
		c.JSON(http.StatusOK, gin.H{
			"orderNotificationType": "IPNCHANGE",
			"orderTrackingId":       orderTrackingID,
			"status":                "200",
		})
	default:
		slog.Error("pesapal ipn processing failed", "correlationId", orderTrackingID, "error", err)
		c.JSON(http.StatusOK, gin.H{
			"orderNotificationType": "IPNCHANGE",
			"orderTrackingId":       orderTrackingID,
			"status":                "500",
		})
	}
}

// GetStatus handles GET /api/v1/payments/:correlationId. A transaction we
// have no row for reads as status "unknown" rather than an error, so the
// client treats the initiation race and a genuinely absent payment the same.
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	correlationID := c.Param("correlationId")

	txn, err := h.paymentService.GetTransaction(c.Request.Context(), correlationID)
	if err != nil {
		if errors.Is(err, services.ErrTransactionNotFound) {
			c.JSON(http.StatusOK, gin.H{"correlationId": correlationID, "status": "unknown"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch transaction"})
		return
	}

	c.JSON(http.StatusOK, txn)
}

// QueryPesapalStatus handles POST /api/v1/payments/pesapal/status, the
// relay the browser uses instead of calling Pesapal directly.
func (h *PaymentHandler) QueryPesapalStatus(c *gin.Context) {
	var req struct {
		Action          string `json:"action" binding:"required"`
		OrderTrackingID string `json:"orderTrackingId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Action != "get_status" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported action"})
		return
	}

	result, err := h.paymentService.QueryPesapalStatus(c.Request.Context(), req.OrderTrackingID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "status query failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// StreamStatus handles GET /api/v1/payments/:correlationId/stream. It pushes
// reconciled status transitions as server-sent events until the transaction
// settles or the client disconnects.
func (h *PaymentHandler) StreamStatus(c *gin.Context) {
	correlationID := c.Param("correlationId")

	watcher, err := h.paymentService.Watch(c.Request.Context(), correlationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start watcher"})
		return
	}
	defer watcher.Stop()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		status, ok := <-watcher.Updates()
		if !ok {
			c.SSEvent("status", gin.H{"correlationId": correlationID, "status": watcher.Current(), "final": true})
			return false
		}
		c.SSEvent("status", gin.H{"correlationId": correlationID, "status": status, "final": status.Terminal()})
		return !status.Terminal()
	})
}

// ListTransactions handles GET /api/v1/payments (admin)
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	transactions, err := h.paymentService.ListRecent(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list transactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions, "page": page, "limit": limit})
}
