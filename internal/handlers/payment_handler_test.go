package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/reconcile"
	"github.com/jamiihub/jamii-portal-backend/internal/services"
	"github.com/jamiihub/jamii-portal-backend/pkg/daraja"
)

type stubPaymentService struct {
	callbackErr error
	callbacks   []*daraja.StkCallback
	transaction *models.Transaction
}

func (s *stubPaymentService) InitiateSTKPush(ctx context.Context, req *models.STKPushRequest) (*models.Transaction, error) {
	return s.transaction, nil
}

func (s *stubPaymentService) SubmitPesapalOrder(ctx context.Context, req *models.PesapalOrderRequest) (*models.Transaction, string, error) {
	return s.transaction, "https://pay.pesapal.test/iframe/x", nil
}

func (s *stubPaymentService) HandleMpesaCallback(ctx context.Context, cb *daraja.StkCallback) error {
	s.callbacks = append(s.callbacks, cb)
	return s.callbackErr
}

func (s *stubPaymentService) HandlePesapalIPN(ctx context.Context, orderTrackingID string) error {
	return s.callbackErr
}

func (s *stubPaymentService) GetTransaction(ctx context.Context, correlationID string) (*models.Transaction, error) {
	if s.transaction == nil {
		return nil, services.ErrTransactionNotFound
	}
	return s.transaction, nil
}

func (s *stubPaymentService) ListRecent(ctx context.Context, page, limit int) ([]*models.Transaction, error) {
	return []*models.Transaction{}, nil
}

func (s *stubPaymentService) QueryPesapalStatus(ctx context.Context, orderTrackingID string) (*services.PesapalStatusResult, error) {
	return &services.PesapalStatusResult{Status: "pending"}, nil
}

func (s *stubPaymentService) Watch(ctx context.Context, correlationID string) (*reconcile.Watcher, error) {
	return nil, nil
}

func newCallbackRouter(svc services.PaymentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewPaymentHandler(svc)
	router.POST("/callbacks/mpesa", h.MpesaCallback)
	router.GET("/payments/:correlationId", h.GetStatus)
	return router
}

func postCallback(t *testing.T, router *gin.Engine, body string) (*httptest.ResponseRecorder, daraja.AckResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/callbacks/mpesa", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var ack daraja.AckResponse
	if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil {
		t.Fatalf("unparseable ack body %q: %v", w.Body.String(), err)
	}
	return w, ack
}

const successCallbackBody = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 0,
      "ResultDesc": "The service request is processed successfully.",
      "CallbackMetadata": {
        "Item": [
          {"Name": "Amount", "Value": 500.00},
          {"Name": "MpesaReceiptNumber", "Value": "QCF123ABC"},
          {"Name": "TransactionDate", "Value": 20260828102115},
          {"Name": "PhoneNumber", "Value": 254712345678}
        ]
      }
    }
  }
}`

func TestMpesaCallbackAcksSuccess(t *testing.T) {
	svc := &stubPaymentService{}
	router := newCallbackRouter(svc)

	w, ack := postCallback(t, router, successCallbackBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ack.ResultCode != 0 {
		t.Fatalf("ResultCode = %d, want 0", ack.ResultCode)
	}
	if len(svc.callbacks) != 1 {
		t.Fatalf("callbacks forwarded = %d, want 1", len(svc.callbacks))
	}
	if svc.callbacks[0].CheckoutRequestID != "ws_CO_191220191020363925" {
		t.Fatalf("forwarded id = %q", svc.callbacks[0].CheckoutRequestID)
	}
}

func TestMpesaCallbackUnknownIDStillAcks(t *testing.T) {
	svc := &stubPaymentService{callbackErr: services.ErrUnknownCorrelationID}
	router := newCallbackRouter(svc)

	w, ack := postCallback(t, router, successCallbackBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	// an unknown id is logged internally but never surfaced to the provider
	if ack.ResultCode != 0 {
		t.Fatalf("ResultCode = %d, want neutral ack 0", ack.ResultCode)
	}
}

func TestMpesaCallbackProcessingFailureNacksAt200(t *testing.T) {
	svc := &stubPaymentService{callbackErr: context.DeadlineExceeded}
	router := newCallbackRouter(svc)

	w, ack := postCallback(t, router, successCallbackBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even on failure", w.Code)
	}
	if ack.ResultCode == 0 {
		t.Fatal("processing failure must request a redelivery")
	}
}

func TestMpesaCallbackBadPayload(t *testing.T) {
	svc := &stubPaymentService{}
	router := newCallbackRouter(svc)

	w, ack := postCallback(t, router, `{"Body": `)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ack.ResultCode == 0 {
		t.Fatal("unparseable payload must not be acked")
	}
	if len(svc.callbacks) != 0 {
		t.Fatal("unparseable payload must not reach the service")
	}
}

func TestGetStatusUnknownTransaction(t *testing.T) {
	router := newCallbackRouter(&stubPaymentService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/no-such-id", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "unknown" {
		t.Fatalf("status field = %q, want unknown", body["status"])
	}
}
