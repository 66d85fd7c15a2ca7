package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	cfgpkg "github.com/portdeck/portdeck/pkg/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	cfg := &cfgpkg.Config{}
	cfg.Gateway.KeyID = "key_test"
	cfg.Gateway.KeySecret = "payment-secret"
	cfg.Gateway.WebhookSecret = "webhook-secret"
	return NewClient(cfg, zap.NewNop().Sugar())
}

func sign(t *testing.T, secret string, message []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaymentSignature(t *testing.T) {
	c := testClient(t)
	sig := sign(t, "payment-secret", []byte("order_abc|pay_123"))

	require.True(t, c.VerifyPaymentSignature("order_abc", "pay_123", sig))

	// any altered input must fail
	require.False(t, c.VerifyPaymentSignature("order_abd", "pay_123", sig))
	require.False(t, c.VerifyPaymentSignature("order_abc", "pay_124", sig))
	require.False(t, c.VerifyPaymentSignature("order_abc", "pay_123", sig[:len(sig)-1]+"0"))
	require.False(t, c.VerifyPaymentSignature("order_abc", "pay_123", ""))
}

func TestVerifyWebhookSignature(t *testing.T) {
	c := testClient(t)
	payload := []byte(`{"event":"payment.captured","payload":{"order_id":"order_abc"}}`)
	sig := sign(t, "webhook-secret", payload)

	require.True(t, c.VerifyWebhookSignature(payload, sig))

	// flip one byte of the payload
	mutated := append([]byte(nil), payload...)
	mutated[10] ^= 0x01
	require.False(t, c.VerifyWebhookSignature(mutated, sig))

	// signature from the wrong secret
	require.False(t, c.VerifyWebhookSignature(payload, sign(t, "payment-secret", payload)))
	require.False(t, c.VerifyWebhookSignature(payload, ""))
}
