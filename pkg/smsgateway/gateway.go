package smsgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Gateway sends SMS notifications to members
type Gateway interface {
	SendSMS(ctx context.Context, phoneNumber, message string) (string, error)
}

// AfricasTalkingGateway sends SMS through the Africa's Talking bulk API
type AfricasTalkingGateway struct {
	BaseURL  string
	Username string
	APIKey   string
	SenderID string
	client   *http.Client
}

// MockGateway logs instead of sending, for local development and tests
type MockGateway struct{}

// NewAfricasTalkingGateway creates a new Africa's Talking SMS gateway
func NewAfricasTalkingGateway(baseURL, username, apiKey, senderID string) Gateway {
	return &AfricasTalkingGateway{
		BaseURL:  baseURL,
		Username: username,
		APIKey:   apiKey,
		SenderID: senderID,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// NewMockGateway creates a new mock SMS gateway
func NewMockGateway() Gateway {
	return &MockGateway{}
}

// SendSMS sends a single message and returns the provider message id
func (g *AfricasTalkingGateway) SendSMS(ctx context.Context, phoneNumber, message string) (string, error) {
	form := url.Values{}
	form.Set("username", g.Username)
	form.Set("to", phoneNumber)
	form.Set("message", message)
	form.Set("from", g.SenderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/version1/messaging", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", g.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("sms gateway rejected message: status %d: %s", resp.StatusCode, string(data))
	}

	var out struct {
		SMSMessageData struct {
			Recipients []struct {
				MessageID string `json:"messageId"`
				Status    string `json:"status"`
			} `json:"Recipients"`
		} `json:"SMSMessageData"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.SMSMessageData.Recipients) == 0 {
		return "", fmt.Errorf("sms gateway returned no recipients")
	}
	return out.SMSMessageData.Recipients[0].MessageID, nil
}

// SendSMS simulates a send and returns a generated message id
func (g *MockGateway) SendSMS(ctx context.Context, phoneNumber, message string) (string, error) {
	return fmt.Sprintf("MOCK-SMS-%d", time.Now().UnixNano()), nil
}
