package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/exp/slog"

	"github.com/jamiihub/jamii-portal-backend/internal/cache"
	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/reconcile"
	"github.com/jamiihub/jamii-portal-backend/internal/repositories"
	"github.com/jamiihub/jamii-portal-backend/internal/utils"
	"github.com/jamiihub/jamii-portal-backend/pkg/daraja"
	"github.com/jamiihub/jamii-portal-backend/pkg/pesapal"
	"github.com/jamiihub/jamii-portal-backend/pkg/smsgateway"
)

// Compile-time check to ensure paymentService implements PaymentService
var _ PaymentService = (*paymentService)(nil)

const (
	cascadeAttempts = 3
	cascadeBackoff  = 200 * time.Millisecond
)

type paymentService struct {
	txnRepo          repositories.TransactionRepository
	contributionRepo repositories.ContributionRepository
	welfareRepo      repositories.WelfareCaseRepository
	notificationRepo repositories.NotificationRepository
	daraja           *daraja.Client
	pesapal          *pesapal.Client
	sms              smsgateway.Gateway
	cache            *cache.Cache
	pollInterval     time.Duration
}

// NewPaymentService creates a new PaymentService implementation
func NewPaymentService(
	txnRepo repositories.TransactionRepository,
	contributionRepo repositories.ContributionRepository,
	welfareRepo repositories.WelfareCaseRepository,
	notificationRepo repositories.NotificationRepository,
	darajaClient *daraja.Client,
	pesapalClient *pesapal.Client,
	sms smsgateway.Gateway,
	statusCache *cache.Cache,
	pollInterval time.Duration,
) PaymentService {
	return &paymentService{
		txnRepo:          txnRepo,
		contributionRepo: contributionRepo,
		welfareRepo:      welfareRepo,
		notificationRepo: notificationRepo,
		daraja:           darajaClient,
		pesapal:          pesapalClient,
		sms:              sms,
		cache:            statusCache,
		pollInterval:     pollInterval,
	}
}

// InitiateSTKPush validates, prompts the payer through Daraja and records
// the pending row. A provider rejection creates no local row at all, so no
// transaction is ever left in an ambiguous state.
func (s *paymentService) InitiateSTKPush(ctx context.Context, req *models.STKPushRequest) (*models.Transaction, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	phone, err := utils.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, err
	}
	contributionID, err := parseContributionID(req.ContributionID)
	if err != nil {
		return nil, err
	}

	resp, err := s.daraja.STKPush(ctx, daraja.STKPushRequest{
		Amount:           req.Amount,
		PhoneNumber:      phone,
		AccountReference: req.AccountReference,
		Description:      req.Description,
	})
	if err != nil {
		slog.Error("stk push rejected", "phone", phone, "amount", req.Amount, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}

	txn := &models.Transaction{
		CorrelationID:     resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		Provider:          models.ProviderMpesa,
		Amount:            req.Amount,
		PhoneNumber:       phone,
		AccountReference:  req.AccountReference,
		Description:       req.Description,
		Status:            models.TransactionPending,
		ContributionID:    contributionID,
	}
	if err := s.txnRepo.Create(ctx, txn); err != nil {
		slog.Error("failed to persist pending transaction", "correlationId", resp.CheckoutRequestID, "error", err)
		return nil, fmt.Errorf("failed to persist pending transaction: %w", err)
	}

	slog.Info("stk push initiated", "correlationId", txn.CorrelationID, "amount", txn.Amount)
	return txn, nil
}

// SubmitPesapalOrder registers an order with Pesapal and records the pending
// row; the caller redirects the payer to the returned URL.
func (s *paymentService) SubmitPesapalOrder(ctx context.Context, req *models.PesapalOrderRequest) (*models.Transaction, string, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, "", err
	}
	phone, err := utils.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, "", err
	}
	contributionID, err := parseContributionID(req.ContributionID)
	if err != nil {
		return nil, "", err
	}

	currency := req.Currency
	if currency == "" {
		currency = "KES"
	}
	reference, err := utils.GenerateReference("JAMII")
	if err != nil {
		return nil, "", err
	}

	resp, err := s.pesapal.SubmitOrder(ctx, pesapal.OrderRequest{
		ID:          reference,
		Currency:    currency,
		Amount:      req.Amount,
		Description: req.Description,
		BillingAddress: pesapal.BillingAddress{
			EmailAddress: req.Email,
			PhoneNumber:  phone,
		},
	})
	if err != nil {
		slog.Error("pesapal order rejected", "reference", reference, "amount", req.Amount, "error", err)
		return nil, "", fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}

	txn := &models.Transaction{
		CorrelationID:    resp.OrderTrackingID,
		Provider:         models.ProviderPesapal,
		Amount:           req.Amount,
		PhoneNumber:      phone,
		AccountReference: reference,
		Description:      req.Description,
		Status:           models.TransactionPending,
		ContributionID:   contributionID,
	}
	if err := s.txnRepo.Create(ctx, txn); err != nil {
		slog.Error("failed to persist pending transaction", "correlationId", resp.OrderTrackingID, "error", err)
		return nil, "", fmt.Errorf("failed to persist pending transaction: %w", err)
	}

	slog.Info("pesapal order submitted", "correlationId", txn.CorrelationID, "reference", reference)
	return txn, resp.RedirectURL, nil
}

// HandleMpesaCallback applies a Daraja result. Redelivered callbacks find
// the row already terminal and return without touching dependent rows.
func (s *paymentService) HandleMpesaCallback(ctx context.Context, cb *daraja.StkCallback) error {
	txn, err := s.txnRepo.FindByCorrelationID(ctx, cb.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			slog.Warn("callback for unknown correlation id", "correlationId", cb.CheckoutRequestID, "resultCode", cb.ResultCode)
			return ErrUnknownCorrelationID
		}
		return fmt.Errorf("failed to look up transaction: %w", err)
	}
	if txn.Status.Terminal() {
		slog.Info("duplicate callback ignored", "correlationId", txn.CorrelationID, "status", txn.Status)
		return nil
	}

	update := repositories.TransactionUpdate{
		Status:     models.TransactionFailed,
		ResultCode: cb.ResultCode,
		ResultDesc: cb.ResultDesc,
	}
	if cb.ResultCode == 0 {
		details, err := cb.PaymentDetails()
		if err != nil {
			// malformed success payload: reject so the provider redelivers
			return fmt.Errorf("malformed callback for %s: %w", cb.CheckoutRequestID, err)
		}
		update.Status = models.TransactionCompleted
		update.ReceiptNumber = details.ReceiptNumber
		update.TransactionDate = &details.TransactionDate
	}

	return s.applyTerminal(ctx, txn, update)
}

// HandlePesapalIPN re-queries the order referenced by the IPN and applies
// the classified outcome. A still-pending classification applies nothing.
func (s *paymentService) HandlePesapalIPN(ctx context.Context, orderTrackingID string) error {
	txn, err := s.txnRepo.FindByCorrelationID(ctx, orderTrackingID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			slog.Warn("ipn for unknown correlation id", "correlationId", orderTrackingID)
			return ErrUnknownCorrelationID
		}
		return fmt.Errorf("failed to look up transaction: %w", err)
	}
	if txn.Status.Terminal() {
		slog.Info("duplicate ipn ignored", "correlationId", txn.CorrelationID, "status", txn.Status)
		return nil
	}

	status, err := s.pesapal.GetTransactionStatus(ctx, orderTrackingID)
	if err != nil {
		return fmt.Errorf("failed to query pesapal status: %w", err)
	}

	update := repositories.TransactionUpdate{ResultDesc: status.PaymentStatusDescription}
	switch pesapal.ClassifyStatus(status.PaymentStatusDescription) {
	case pesapal.StatusCompleted:
		update.Status = models.TransactionCompleted
		update.ReceiptNumber = status.ConfirmationCode
		now := time.Now()
		update.TransactionDate = &now
	case pesapal.StatusFailed:
		update.Status = models.TransactionFailed
		update.ResultCode = 1
	default:
		// still pending upstream; the next IPN or the sweep decides
		return nil
	}

	return s.applyTerminal(ctx, txn, update)
}

// applyTerminal performs the conditional status update and, on first
// application of a completion, cascades to the linked contribution. The
// cascade is best-effort: the transaction update is already durable, so a
// cascade failure is logged for reconciliation and never rolled back.
func (s *paymentService) applyTerminal(ctx context.Context, txn *models.Transaction, update repositories.TransactionUpdate) error {
	applied, err := s.txnRepo.CompleteIfPending(ctx, txn.CorrelationID, update)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", txn.CorrelationID, err)
	}
	if !applied {
		// a concurrent delivery won the race
		slog.Info("transaction already terminal, callback is a no-op", "correlationId", txn.CorrelationID)
		return nil
	}

	if err := s.cache.InvalidateTransaction(ctx, txn.CorrelationID); err != nil {
		slog.Warn("cache invalidation failed", "correlationId", txn.CorrelationID, "error", err)
	}

	slog.Info("transaction settled",
		"correlationId", txn.CorrelationID,
		"status", update.Status,
		"receipt", update.ReceiptNumber)

	if update.Status == models.TransactionCompleted && txn.ContributionID != nil {
		s.cascadeContribution(ctx, txn, update)
	}
	if update.Status == models.TransactionCompleted {
		s.notifyCompleted(ctx, txn, update)
	}
	return nil
}

// cascadeContribution marks the linked contribution paid exactly once and
// bumps the welfare case counter when the contribution targets one.
func (s *paymentService) cascadeContribution(ctx context.Context, txn *models.Transaction, update repositories.TransactionUpdate) {
	paidAt := time.Now()
	if update.TransactionDate != nil {
		paidAt = *update.TransactionDate
	}

	var cascaded bool
	err := utils.Retry(ctx, cascadeAttempts, cascadeBackoff, func() error {
		applied, err := s.contributionRepo.MarkPaid(ctx, *txn.ContributionID, update.ReceiptNumber, paidAt)
		if err != nil {
			return err
		}
		cascaded = applied
		return nil
	})
	if err != nil {
		cascadeErr := &CascadeError{
			CorrelationID:  txn.CorrelationID,
			ContributionID: txn.ContributionID.Hex(),
			Err:            err,
		}
		slog.Error("contribution cascade failed, flagged for reconciliation", "error", cascadeErr)
		return
	}
	if !cascaded {
		// already paid by an earlier delivery
		return
	}

	contribution, err := s.contributionRepo.FindByID(ctx, *txn.ContributionID)
	if err != nil {
		slog.Warn("paid contribution lookup failed", "contributionId", txn.ContributionID.Hex(), "error", err)
		return
	}
	if contribution.WelfareCaseID != nil {
		if err := s.welfareRepo.IncrementRaised(ctx, *contribution.WelfareCaseID, txn.Amount); err != nil {
			slog.Error("welfare counter cascade failed, flagged for reconciliation",
				"welfareCaseId", contribution.WelfareCaseID.Hex(),
				"correlationId", txn.CorrelationID,
				"error", err)
		}
	}

	notification := &models.Notification{
		MemberID: contribution.MemberID,
		Type:     models.NotificationPayment,
		Title:    "Contribution received",
		Message:  fmt.Sprintf("Your contribution of KES %.2f was received. Receipt %s.", txn.Amount, update.ReceiptNumber),
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		slog.Warn("failed to create payment notification", "memberId", contribution.MemberID.Hex(), "error", err)
	}
}

// notifyCompleted sends the payer a confirmation SMS, best-effort
func (s *paymentService) notifyCompleted(ctx context.Context, txn *models.Transaction, update repositories.TransactionUpdate) {
	message := fmt.Sprintf("Payment of KES %.2f received. Receipt %s. Thank you.", txn.Amount, update.ReceiptNumber)
	if _, err := s.sms.SendSMS(ctx, txn.PhoneNumber, message); err != nil {
		slog.Warn("confirmation sms failed", "correlationId", txn.CorrelationID, "error", err)
	}
}

// GetTransaction reads a transaction by correlation id, serving terminal
// rows from the cache when possible.
func (s *paymentService) GetTransaction(ctx context.Context, correlationID string) (*models.Transaction, error) {
	if txn, ok := s.cache.GetTransaction(ctx, correlationID); ok {
		return txn, nil
	}

	txn, err := s.txnRepo.FindByCorrelationID(ctx, correlationID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	if err := s.cache.SetTransaction(ctx, txn); err != nil {
		slog.Warn("cache write failed", "correlationId", correlationID, "error", err)
	}
	return txn, nil
}

// ListRecent reads transactions newest first
func (s *paymentService) ListRecent(ctx context.Context, page, limit int) ([]*models.Transaction, error) {
	return s.txnRepo.FindRecent(ctx, page, limit)
}

// QueryPesapalStatus relays a status query and classifies the description
func (s *paymentService) QueryPesapalStatus(ctx context.Context, orderTrackingID string) (*PesapalStatusResult, error) {
	status, err := s.pesapal.GetTransactionStatus(ctx, orderTrackingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pesapal status: %w", err)
	}
	return &PesapalStatusResult{
		Status:           string(pesapal.ClassifyStatus(status.PaymentStatusDescription)),
		Description:      status.PaymentStatusDescription,
		ConfirmationCode: status.ConfirmationCode,
	}, nil
}

// Watch starts a reconciling watcher for one correlation id. When the
// change feed cannot be opened the watcher degrades to polling only.
func (s *paymentService) Watch(ctx context.Context, correlationID string) (*reconcile.Watcher, error) {
	feed, err := s.txnRepo.Watch(ctx, correlationID)
	if err != nil {
		slog.Warn("change feed unavailable, watcher degrades to polling", "correlationId", correlationID, "error", err)
		feed = nil
	}

	watcher := reconcile.NewWatcher(&transactionFetcher{repo: s.txnRepo}, feed, s.pollInterval)
	watcher.Start(ctx, correlationID)
	return watcher, nil
}

// transactionFetcher adapts the repository to the watcher's Fetcher. A
// missing row maps to unknown with no error: the watcher keeps polling
// through the initiation race.
type transactionFetcher struct {
	repo repositories.TransactionRepository
}

func (f *transactionFetcher) FetchStatus(ctx context.Context, correlationID string) (reconcile.Status, error) {
	txn, err := f.repo.FindByCorrelationID(ctx, correlationID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return reconcile.StatusUnknown, nil
		}
		return reconcile.StatusUnknown, err
	}
	return reconcile.FromTransaction(txn.Status), nil
}

func validateAmount(amount float64) error {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return &utils.ValidationError{Field: "amount", Reason: "must be a positive finite value"}
	}
	return nil
}

func parseContributionID(raw string) (*primitive.ObjectID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, &utils.ValidationError{Field: "contributionId", Reason: "must be a valid object id"}
	}
	return &id, nil
}
