package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const timestampLayout = "20060102150405"

// Client talks to the Safaricom Daraja API (OAuth + Lipa na M-Pesa STK push)
type Client struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
	MockAPI        bool

	client *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a new Daraja API client
func NewClient(baseURL, consumerKey, consumerSecret, shortcode, passkey, callbackURL string, mockAPI bool) *Client {
	return &Client{
		BaseURL:        baseURL,
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Shortcode:      shortcode,
		Passkey:        passkey,
		CallbackURL:    callbackURL,
		MockAPI:        mockAPI,
		client:         &http.Client{Timeout: 20 * time.Second},
	}
}

// STKPushRequest holds the parameters for initiating an STK push.
// PhoneNumber must already be normalized to +254XXXXXXXXX.
type STKPushRequest struct {
	Amount           float64
	PhoneNumber      string
	AccountReference string
	Description      string
}

// STKPushResponse is Daraja's acknowledgement of an STK push request
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// STKPush initiates a payment prompt on the payer's phone and returns the
// checkout request id used to correlate the asynchronous callback.
func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	if c.MockAPI {
		return c.mockSTKPush(req)
	}

	token, err := c.accessTokenFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("daraja auth failed: %w", err)
	}

	timestamp := time.Now().Format(timestampLayout)
	payload := map[string]interface{}{
		"BusinessShortCode": c.Shortcode,
		"Password":          c.password(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            int(req.Amount),
		"PartyA":            strings.TrimPrefix(req.PhoneNumber, "+"),
		"PartyB":            c.Shortcode,
		"PhoneNumber":       strings.TrimPrefix(req.PhoneNumber, "+"),
		"CallBackURL":       c.CallbackURL,
		"AccountReference":  req.AccountReference,
		"TransactionDesc":   req.Description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("daraja stk push rejected: status %d: %s", resp.StatusCode, string(data))
	}

	var out STKPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.ResponseCode != "0" {
		return nil, fmt.Errorf("daraja stk push rejected: %s (%s)", out.ResponseDescription, out.ResponseCode)
	}
	return &out, nil
}

// password builds the Lipa na M-Pesa password for a timestamp
func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.Shortcode + c.Passkey + timestamp))
}

// accessTokenFor returns a cached OAuth token, refreshing when it is within
// 30 seconds of expiry.
func (c *Client) accessTokenFor(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-30*time.Second)) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ConsumerKey, c.ConsumerSecret)

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
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}

	c.accessToken = out.AccessToken
	c.tokenExpiry = time.Now().Add(55 * time.Minute)
	return c.accessToken, nil
}

// mockSTKPush mocks the STKPush method for local development and tests
func (c *Client) mockSTKPush(req STKPushRequest) (*STKPushResponse, error) {
	now := time.Now()
	return &STKPushResponse{
		MerchantRequestID:   fmt.Sprintf("29115-%d-1", now.UnixNano()),
		CheckoutRequestID:   fmt.Sprintf("ws_CO_%s%d", now.Format(timestampLayout), now.UnixNano()%100000),
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	}, nil
}
