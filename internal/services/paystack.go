package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// PaystackService wraps the Paystack REST API for transaction initialization
// and the pull-based verification call.
type PaystackService struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewPaystackService(baseURL, secretKey string) *PaystackService {
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &PaystackService{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// VerifyWebhookSignature checks that signature is the hex HMAC-SHA512 of
// rawBody under secret. It must be called with the exact bytes read off the
// wire: re-serialized JSON is not byte-identical to the original payload.
// Fails closed: any missing input or mismatch returns false, it never errors.
func VerifyWebhookSignature(rawBody []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	// ConstantTimeCompare reports 0 on length mismatch as well
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// TransactionCustomer is the customer block of a gateway transaction
type TransactionCustomer struct {
	Email string `json:"email"`
}

// Transaction is the gateway's view of one transaction, as returned by the
// verify endpoint
type Transaction struct {
	Status    string                 `json:"status"`
	Reference string                 `json:"reference"`
	Amount    int64                  `json:"amount"` // minor units
	Currency  string                 `json:"currency"`
	PaidAt    string                 `json:"paid_at"`
	Customer  TransactionCustomer    `json:"customer"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// InitializedTransaction is the result of starting a checkout
type InitializedTransaction struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// envelope is the common Paystack response wrapper
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *PaystackService) makeRequest(ctx context.Context, method, endpoint string, payload interface{}, out interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("gateway returned non-JSON response (status %d)", resp.StatusCode)
	}
	if resp.StatusCode >= 400 || !env.Status {
		return fmt.Errorf("gateway request failed with status %d: %s", resp.StatusCode, env.Message)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode gateway data: %w", err)
		}
	}
	return nil
}

// InitializeTransaction starts a hosted checkout for the given buyer and
// amount (minor units). Metadata travels through the gateway untouched and
// comes back on the webhook, which is how plan and userId survive the trip.
func (s *PaystackService) InitializeTransaction(ctx context.Context, email string, amountMinor int64, metadata map[string]interface{}, callbackURL string) (*InitializedTransaction, error) {
	body := map[string]interface{}{
		"email":        email,
		"amount":       amountMinor,
		"metadata":     metadata,
		"callback_url": callbackURL,
	}

	var init InitializedTransaction
	if err := s.makeRequest(ctx, http.MethodPost, "/transaction/initialize", body, &init); err != nil {
		return nil, err
	}
	return &init, nil
}

// VerifyTransaction fetches the gateway's authoritative state for a
// reference. Used by the success-redirect flow to confirm a charge
// independently of webhook delivery.
func (s *PaystackService) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	var trx Transaction
	endpoint := "/transaction/verify/" + url.PathEscape(reference)
	if err := s.makeRequest(ctx, http.MethodGet, endpoint, nil, &trx); err != nil {
		return nil, err
	}
	return &trx, nil
}
