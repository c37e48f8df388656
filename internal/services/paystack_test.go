package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "sk_test_abc123"
	body := []byte(`{"event":"charge.success","data":{"reference":"ref_1"}}`)

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		want      bool
	}{
		{
			name:      "valid signature",
			body:      body,
			signature: signBody(body, secret),
			secret:    secret,
			want:      true,
		},
		{
			name:      "tampered body",
			body:      []byte(`{"event":"charge.success","data":{"reference":"ref_2"}}`),
			signature: signBody(body, secret),
			secret:    secret,
			want:      false,
		},
		{
			name:      "wrong secret",
			body:      body,
			signature: signBody(body, "sk_test_other"),
			secret:    secret,
			want:      false,
		},
		{
			name:      "empty signature",
			body:      body,
			signature: "",
			secret:    secret,
			want:      false,
		},
		{
			name:      "empty secret fails closed",
			body:      body,
			signature: signBody(body, secret),
			secret:    "",
			want:      false,
		},
		{
			name:      "truncated signature",
			body:      body,
			signature: signBody(body, secret)[:64],
			secret:    secret,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifyWebhookSignature(tt.body, tt.signature, tt.secret)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitializeTransaction(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]interface{}{
				"authorization_url": "https://checkout.paystack.com/abc",
				"access_code":       "abc",
				"reference":         "ref_init_1",
			},
		})
	}))
	defer srv.Close()

	svc := NewPaystackService(srv.URL, "sk_test_key")
	trx, err := svc.InitializeTransaction(context.Background(), "trader@example.com", 9000000,
		map[string]interface{}{"plan": "premium"}, "https://app.example.com/api/paystack/verify")
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk_test_key", gotAuth)
	assert.Equal(t, "/transaction/initialize", gotPath)
	assert.Equal(t, "trader@example.com", gotBody["email"])
	assert.EqualValues(t, 9000000, gotBody["amount"])
	assert.Equal(t, "https://checkout.paystack.com/abc", trx.AuthorizationURL)
	assert.Equal(t, "ref_init_1", trx.Reference)
}

func TestVerifyTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/ref_ver_1", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]interface{}{
				"status":    "success",
				"reference": "ref_ver_1",
				"amount":    15000000,
				"currency":  "NGN",
				"customer":  map[string]interface{}{"email": "trader@example.com"},
				"metadata":  map[string]interface{}{"plan": "vip"},
			},
		})
	}))
	defer srv.Close()

	svc := NewPaystackService(srv.URL, "sk_test_key")
	trx, err := svc.VerifyTransaction(context.Background(), "ref_ver_1")
	require.NoError(t, err)

	assert.Equal(t, "success", trx.Status)
	assert.EqualValues(t, 15000000, trx.Amount)
	assert.Equal(t, "trader@example.com", trx.Customer.Email)
	assert.Equal(t, "vip", trx.Metadata["plan"])
}

func TestVerifyTransactionGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  false,
			"message": "Transaction reference not found",
		})
	}))
	defer srv.Close()

	svc := NewPaystackService(srv.URL, "sk_test_key")
	_, err := svc.VerifyTransaction(context.Background(), "ref_missing")
	assert.Error(t, err)
}
