package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedSignature(t *testing.T) {
	secret := "test_secret"
	orderID := "order_123"
	paymentID := "pay_456"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("order_123|pay_456"))
	want := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, ExpectedSignature(orderID, paymentID, secret))
	assert.Len(t, ExpectedSignature(orderID, paymentID, secret), 64)
}

func TestVerifySignature(t *testing.T) {
	secret := "test_secret"
	valid := ExpectedSignature("order_123", "pay_456", secret)

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		expected  bool
	}{
		{
			name:      "valid signature",
			orderID:   "order_123",
			paymentID: "pay_456",
			signature: valid,
			expected:  true,
		},
		{
			name:      "tampered signature",
			orderID:   "order_123",
			paymentID: "pay_456",
			signature: "0000000000000000000000000000000000000000000000000000000000000000",
			expected:  false,
		},
		{
			name:      "signature for different payment",
			orderID:   "order_123",
			paymentID: "pay_789",
			signature: valid,
			expected:  false,
		},
		{
			name:      "empty signature",
			orderID:   "order_123",
			paymentID: "pay_456",
			signature: "",
			expected:  false,
		},
		{
			name:      "wrong secret used by sender",
			orderID:   "order_123",
			paymentID: "pay_456",
			signature: ExpectedSignature("order_123", "pay_456", "other_secret"),
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, VerifySignature(tt.orderID, tt.paymentID, tt.signature, secret))
		})
	}
}
