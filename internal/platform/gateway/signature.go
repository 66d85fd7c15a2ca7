package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyPaymentSignature checks the signature the gateway hands to the browser
// after checkout. The signed message is "<gatewayOrderID>|<gatewayPaymentID>"
// keyed with the key secret. Mismatch is a plain false, never an error.
func (c *Client) VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return verifyHMAC([]byte(gatewayOrderID+"|"+gatewayPaymentID), signature, c.keySecret)
}

// VerifyWebhookSignature checks the signature header against the raw request
// body. It must run on the unparsed bytes: re-serialized JSON is not
// guaranteed byte-identical to what the gateway signed.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool {
	return verifyHMAC(rawBody, signatureHeader, c.webhookSecret)
}

func verifyHMAC(message []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
