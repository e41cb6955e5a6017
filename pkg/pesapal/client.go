package pesapal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Client talks to the Pesapal v3 API (order submission and status tracking)
type Client struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	CallbackURL    string
	IPNID          string
	MockAPI        bool

	client *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new Pesapal API client
func NewClient(baseURL, consumerKey, consumerSecret, callbackURL, ipnID string, mockAPI bool) *Client {
	return &Client{
		BaseURL:        baseURL,
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		CallbackURL:    callbackURL,
		IPNID:          ipnID,
		MockAPI:        mockAPI,
		client:         &http.Client{Timeout: 20 * time.Second},
	}
}

// OrderRequest is the payload for SubmitOrderRequest
type OrderRequest struct {
	ID             string         `json:"id"`
	Currency       string         `json:"currency"`
	Amount         float64        `json:"amount"`
	Description    string         `json:"description"`
	CallbackURL    string         `json:"callback_url"`
	NotificationID string         `json:"notification_id"`
	BillingAddress BillingAddress `json:"billing_address"`
}

// BillingAddress identifies the payer
type BillingAddress struct {
	EmailAddress string `json:"email_address"`
	PhoneNumber  string `json:"phone_number"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
}

// OrderResponse carries the tracking id and the hosted payment page URL
type OrderResponse struct {
	OrderTrackingID   string `json:"order_tracking_id"`
	MerchantReference string `json:"merchant_reference"`
	RedirectURL       string `json:"redirect_url"`
	Status            string `json:"status"`
}

// TransactionStatus is the response of GetTransactionStatus. The
// payment_status_description is free text classified by ClassifyStatus.
type TransactionStatus struct {
	PaymentMethod            string  `json:"payment_method"`
	Amount                   float64 `json:"amount"`
	PaymentStatusDescription string  `json:"payment_status_description"`
	ConfirmationCode         string  `json:"confirmation_code"`
	MerchantReference        string  `json:"merchant_reference"`
	Message                  string  `json:"message"`
}

// SubmitOrder registers an order and returns the tracking id plus the
// redirect URL the payer completes the payment on.
func (c *Client) SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	if c.MockAPI {
		return c.mockSubmitOrder(req)
	}

	if req.NotificationID == "" {
		req.NotificationID = c.IPNID
	}
	if req.CallbackURL == "" {
		req.CallbackURL = c.CallbackURL
	}

	var out OrderResponse
	if err := c.post(ctx, "/api/Transactions/SubmitOrderRequest", req, &out); err != nil {
		return nil, err
	}
	if out.OrderTrackingID == "" {
		return nil, fmt.Errorf("pesapal order rejected: %s", out.Status)
	}
	return &out, nil
}

// GetTransactionStatus queries the current state of an order
func (c *Client) GetTransactionStatus(ctx context.Context, orderTrackingID string) (*TransactionStatus, error) {
	if c.MockAPI {
		return &TransactionStatus{
			PaymentStatusDescription: "Completed",
			ConfirmationCode:         fmt.Sprintf("PSP%d", time.Now().UnixNano()%1000000),
		}, nil
	}

	token, err := c.accessTokenFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("pesapal auth failed: %w", err)
	}

	url := fmt.Sprintf("%s/api/Transactions/GetTransactionStatus?orderTrackingId=%s", c.BaseURL, orderTrackingID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pesapal status query failed: status %d: %s", resp.StatusCode, string(data))
	}

	var out TransactionStatus
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	token, err := c.accessTokenFor(ctx)
	if err != nil {
		return fmt.Errorf("pesapal auth failed: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pesapal request failed: status %d: %s", resp.StatusCode, string(data))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// accessTokenFor returns a cached bearer token, refreshing shortly before
// Pesapal's 5 minute expiry.
func (c *Client) accessTokenFor(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-30*time.Second)) {
		return c.token, nil
	}

	payload := map[string]string{
		"consumer_key":    c.ConsumerKey,
		"consumer_secret": c.ConsumerSecret,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/Auth/RequestToken", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request failed: status %d: %s", resp.StatusCode, string(data))
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}

	c.token = out.Token
	c.tokenExpiry = time.Now().Add(5 * time.Minute)
	return c.token, nil
}

func (c *Client) mockSubmitOrder(req OrderRequest) (*OrderResponse, error) {
	trackingID := fmt.Sprintf("mock-%d", time.Now().UnixNano())
	return &OrderResponse{
		OrderTrackingID:   trackingID,
		MerchantReference: req.ID,
		RedirectURL:       "https://pay.pesapal.test/iframe/" + trackingID,
		Status:            "200",
	}, nil
}
