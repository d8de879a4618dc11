package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex-encoded HMAC-SHA256 the gateway attaches to a
// completed payment: HMAC(secret, "{orderID}|{paymentID}").
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the digest and compares it in constant time
// against the client-supplied signature.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
