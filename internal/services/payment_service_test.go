package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/reconcile"
	"github.com/jamiihub/jamii-portal-backend/internal/repositories"
	"github.com/jamiihub/jamii-portal-backend/pkg/daraja"
	"github.com/jamiihub/jamii-portal-backend/pkg/pesapal"
	"github.com/jamiihub/jamii-portal-backend/pkg/smsgateway"
)

type fakeTransactionRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Transaction
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{rows: make(map[string]*models.Transaction)}
}

func (r *fakeTransactionRepo) Create(ctx context.Context, txn *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rows[txn.CorrelationID]; exists {
		return errors.New("duplicate correlation id")
	}
	txn.CreatedAt = time.Now()
	txn.UpdatedAt = txn.CreatedAt
	cp := *txn
	r.rows[txn.CorrelationID] = &cp
	return nil
}

func (r *fakeTransactionRepo) FindByCorrelationID(ctx context.Context, correlationID string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	txn, ok := r.rows[correlationID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *txn
	return &cp, nil
}

func (r *fakeTransactionRepo) FindRecent(ctx context.Context, page, limit int) ([]*models.Transaction, error) {
	return []*models.Transaction{}, nil
}

func (r *fakeTransactionRepo) CompleteIfPending(ctx context.Context, correlationID string, update repositories.TransactionUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	txn, ok := r.rows[correlationID]
	if !ok || txn.Status != models.TransactionPending {
		return false, nil
	}
	txn.Status = update.Status
	txn.MpesaReceiptNumber = update.ReceiptNumber
	txn.ResultCode = update.ResultCode
	txn.ResultDesc = update.ResultDesc
	txn.TransactionDate = update.TransactionDate
	txn.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeTransactionRepo) SweepPending(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeTransactionRepo) Watch(ctx context.Context, correlationID string) (reconcile.Feed, error) {
	return nil, errors.New("change streams unavailable")
}

func (r *fakeTransactionRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

type fakeContributionRepo struct {
	mu        sync.Mutex
	rows      map[primitive.ObjectID]*models.Contribution
	paidCalls int
}

func newFakeContributionRepo() *fakeContributionRepo {
	return &fakeContributionRepo{rows: make(map[primitive.ObjectID]*models.Contribution)}
}

func (r *fakeContributionRepo) Create(ctx context.Context, contribution *models.Contribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if contribution.ID.IsZero() {
		contribution.ID = primitive.NewObjectID()
	}
	cp := *contribution
	r.rows[contribution.ID] = &cp
	return nil
}

func (r *fakeContributionRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Contribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contribution, ok := r.rows[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *contribution
	return &cp, nil
}

func (r *fakeContributionRepo) FindByMember(ctx context.Context, memberID primitive.ObjectID, page, limit int) ([]*models.Contribution, error) {
	return []*models.Contribution{}, nil
}

func (r *fakeContributionRepo) FindAll(ctx context.Context, page, limit int) ([]*models.Contribution, error) {
	return []*models.Contribution{}, nil
}

func (r *fakeContributionRepo) MarkPaid(ctx context.Context, id primitive.ObjectID, referenceNumber string, paidAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paidCalls++
	contribution, ok := r.rows[id]
	if !ok {
		return false, mongo.ErrNoDocuments
	}
	if contribution.Status == models.ContributionPaid {
		return false, nil
	}
	contribution.Status = models.ContributionPaid
	contribution.ReferenceNumber = referenceNumber
	contribution.PaidAt = &paidAt
	return true, nil
}

func (r *fakeContributionRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.rows)), nil
}

type fakeWelfareRepo struct {
	mu         sync.Mutex
	rows       map[primitive.ObjectID]*models.WelfareCase
	increments int
}

func newFakeWelfareRepo() *fakeWelfareRepo {
	return &fakeWelfareRepo{rows: make(map[primitive.ObjectID]*models.WelfareCase)}
}

func (r *fakeWelfareRepo) Create(ctx context.Context, welfareCase *models.WelfareCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if welfareCase.ID.IsZero() {
		welfareCase.ID = primitive.NewObjectID()
	}
	cp := *welfareCase
	r.rows[welfareCase.ID] = &cp
	return nil
}

func (r *fakeWelfareRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.WelfareCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	welfareCase, ok := r.rows[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *welfareCase
	return &cp, nil
}

func (r *fakeWelfareRepo) FindAll(ctx context.Context, page, limit int, status models.WelfareCaseStatus) ([]*models.WelfareCase, error) {
	return []*models.WelfareCase{}, nil
}

func (r *fakeWelfareRepo) Update(ctx context.Context, welfareCase *models.WelfareCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *welfareCase
	r.rows[welfareCase.ID] = &cp
	return nil
}

func (r *fakeWelfareRepo) IncrementRaised(ctx context.Context, id primitive.ObjectID, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	welfareCase, ok := r.rows[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	r.increments++
	welfareCase.RaisedAmount += amount
	return nil
}

func (r *fakeWelfareRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.rows)), nil
}

type fakeNotificationRepo struct {
	mu   sync.Mutex
	rows []*models.Notification
}

func (r *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *notification
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeNotificationRepo) FindByMember(ctx context.Context, memberID primitive.ObjectID, page, limit int) ([]*models.Notification, error) {
	return []*models.Notification{}, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	return nil
}

func (r *fakeNotificationRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

type paymentFixture struct {
	service       PaymentService
	txnRepo       *fakeTransactionRepo
	contributions *fakeContributionRepo
	welfare       *fakeWelfareRepo
	notifications *fakeNotificationRepo
}

func newPaymentFixture(t *testing.T, darajaClient *daraja.Client) *paymentFixture {
	t.Helper()
	if darajaClient == nil {
		darajaClient = daraja.NewClient("", "key", "secret", "174379", "passkey", "https://example.test/cb", true)
	}
	f := &paymentFixture{
		txnRepo:       newFakeTransactionRepo(),
		contributions: newFakeContributionRepo(),
		welfare:       newFakeWelfareRepo(),
		notifications: &fakeNotificationRepo{},
	}
	f.service = NewPaymentService(
		f.txnRepo,
		f.contributions,
		f.welfare,
		f.notifications,
		darajaClient,
		pesapal.NewClient("", "key", "secret", "https://example.test/return", "ipn-1", true),
		smsgateway.NewMockGateway(),
		nil,
		20*time.Millisecond,
	)
	return f
}

func successCallback(correlationID, receipt string, amount float64) *daraja.StkCallback {
	return &daraja.StkCallback{
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: correlationID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		CallbackMetadata: daraja.Metadata{
			Items: []daraja.MetadataItem{
				{Name: "Amount", Value: amount},
				{Name: "MpesaReceiptNumber", Value: receipt},
				{Name: "TransactionDate", Value: float64(20260828102115)},
				{Name: "PhoneNumber", Value: float64(254712345678)},
			},
		},
	}
}

func TestInitiateSTKPushValidation(t *testing.T) {
	f := newPaymentFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.STKPushRequest
	}{
		{"zero amount", models.STKPushRequest{Amount: 0, PhoneNumber: "0712345678"}},
		{"negative amount", models.STKPushRequest{Amount: -50, PhoneNumber: "0712345678"}},
		{"invalid phone prefix", models.STKPushRequest{Amount: 100, PhoneNumber: "0812345678"}},
		{"short phone", models.STKPushRequest{Amount: 100, PhoneNumber: "07123"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.service.InitiateSTKPush(ctx, &tc.req); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}

	if n, _ := f.txnRepo.Count(ctx); n != 0 {
		t.Fatalf("invalid requests must not create rows, found %d", n)
	}
}

func TestInitiateSTKPushProviderRejectedCreatesNoRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rejecting := daraja.NewClient(srv.URL, "key", "secret", "174379", "passkey", "https://example.test/cb", false)
	f := newPaymentFixture(t, rejecting)
	ctx := context.Background()

	_, err := f.service.InitiateSTKPush(ctx, &models.STKPushRequest{
		Amount:      100,
		PhoneNumber: "0712345678",
	})
	if !errors.Is(err, ErrProviderRejected) {
		t.Fatalf("expected ErrProviderRejected, got %v", err)
	}
	if n, _ := f.txnRepo.Count(ctx); n != 0 {
		t.Fatalf("provider rejection must not create rows, found %d", n)
	}
}

func TestHandleMpesaCallbackUnknownCorrelationID(t *testing.T) {
	f := newPaymentFixture(t, nil)

	err := f.service.HandleMpesaCallback(context.Background(), successCallback("ws_CO_never_initiated", "QCF123", 500))
	if !errors.Is(err, ErrUnknownCorrelationID) {
		t.Fatalf("expected ErrUnknownCorrelationID, got %v", err)
	}
}

func TestHandleMpesaCallbackIdempotent(t *testing.T) {
	f := newPaymentFixture(t, nil)
	ctx := context.Background()

	welfareCase := &models.WelfareCase{Title: "Hospital bill", MemberID: primitive.NewObjectID(), Status: models.WelfareCaseApproved, TargetAmount: 10000}
	if err := f.welfare.Create(ctx, welfareCase); err != nil {
		t.Fatal(err)
	}
	contribution := &models.Contribution{
		MemberID:      primitive.NewObjectID(),
		WelfareCaseID: &welfareCase.ID,
		Amount:        500,
		Status:        models.ContributionPending,
	}
	if err := f.contributions.Create(ctx, contribution); err != nil {
		t.Fatal(err)
	}

	txn, err := f.service.InitiateSTKPush(ctx, &models.STKPushRequest{
		Amount:         500,
		PhoneNumber:    "0712345678",
		ContributionID: contribution.ID.Hex(),
	})
	if err != nil {
		t.Fatal(err)
	}

	cb := successCallback(txn.CorrelationID, "QCF123ABC", 500)
	for i := 0; i < 3; i++ {
		if err := f.service.HandleMpesaCallback(ctx, cb); err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
	}

	got, err := f.service.GetTransaction(ctx, txn.CorrelationID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.TransactionCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.MpesaReceiptNumber != "QCF123ABC" {
		t.Fatalf("receipt = %q, want QCF123ABC", got.MpesaReceiptNumber)
	}

	paid, err := f.contributions.FindByID(ctx, contribution.ID)
	if err != nil {
		t.Fatal(err)
	}
	if paid.Status != models.ContributionPaid {
		t.Fatalf("contribution status = %s, want paid", paid.Status)
	}
	if paid.ReferenceNumber != "QCF123ABC" {
		t.Fatalf("contribution reference = %q, want QCF123ABC", paid.ReferenceNumber)
	}

	// redeliveries must not cascade again
	if f.welfare.increments != 1 {
		t.Fatalf("welfare counter incremented %d times, want 1", f.welfare.increments)
	}
	raised, err := f.welfare.FindByID(ctx, welfareCase.ID)
	if err != nil {
		t.Fatal(err)
	}
	if raised.RaisedAmount != 500 {
		t.Fatalf("raised = %.2f, want 500.00", raised.RaisedAmount)
	}
	if n, _ := f.notifications.Count(ctx); n != 1 {
		t.Fatalf("notifications = %d, want 1", n)
	}
}

func TestHandleMpesaCallbackFailure(t *testing.T) {
	f := newPaymentFixture(t, nil)
	ctx := context.Background()

	txn, err := f.service.InitiateSTKPush(ctx, &models.STKPushRequest{Amount: 250, PhoneNumber: "0712345678"})
	if err != nil {
		t.Fatal(err)
	}

	cb := &daraja.StkCallback{
		CheckoutRequestID: txn.CorrelationID,
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	}
	if err := f.service.HandleMpesaCallback(ctx, cb); err != nil {
		t.Fatal(err)
	}

	got, err := f.service.GetTransaction(ctx, txn.CorrelationID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.TransactionFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ResultCode != 1032 {
		t.Fatalf("result code = %d, want 1032", got.ResultCode)
	}
	if f.contributions.paidCalls != 0 {
		t.Fatal("failed payment must not touch contributions")
	}
}

func TestHandlePesapalIPNCompletes(t *testing.T) {
	f := newPaymentFixture(t, nil)
	ctx := context.Background()

	txn, _, err := f.service.SubmitPesapalOrder(ctx, &models.PesapalOrderRequest{
		Amount:      750,
		Email:       "jane@example.com",
		PhoneNumber: "0112345678",
		Description: "Monthly dues",
	})
	if err != nil {
		t.Fatal(err)
	}

	// mock client reports Completed; redelivery must be a no-op
	for i := 0; i < 2; i++ {
		if err := f.service.HandlePesapalIPN(ctx, txn.CorrelationID); err != nil {
			t.Fatalf("ipn %d: %v", i+1, err)
		}
	}

	got, err := f.service.GetTransaction(ctx, txn.CorrelationID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.TransactionCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.MpesaReceiptNumber == "" {
		t.Fatal("expected a confirmation code as receipt")
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	f := newPaymentFixture(t, nil)

	_, err := f.service.GetTransaction(context.Background(), "no-such-id")
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestWatchObservesSettlement(t *testing.T) {
	f := newPaymentFixture(t, nil)
	ctx := context.Background()

	txn, err := f.service.InitiateSTKPush(ctx, &models.STKPushRequest{Amount: 500, PhoneNumber: "0712345678"})
	if err != nil {
		t.Fatal(err)
	}

	watcher, err := f.service.Watch(ctx, txn.CorrelationID)
	if err != nil {
		t.Fatal(err)
	}
	defer watcher.Stop()

	if err := f.service.HandleMpesaCallback(ctx, successCallback(txn.CorrelationID, "QCF999", 500)); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case status, ok := <-watcher.Updates():
			if !ok {
				if got := watcher.Current(); got != reconcile.StatusCompleted {
					t.Fatalf("final status = %s, want completed", got)
				}
				return
			}
			if status == reconcile.StatusCompleted {
				return
			}
		case <-deadline:
			t.Fatalf("watcher never observed settlement, current = %s", watcher.Current())
		}
	}
}
