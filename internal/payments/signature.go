package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// ExpectedSignature computes the lowercase hex HMAC-SHA256 over the
// gateway's documented canonical message "{order_id}|{payment_id}".
// The delimiter and field order are part of the gateway contract.
func ExpectedSignature(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID))
	mac.Write([]byte("|"))
	mac.Write([]byte(paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches the HMAC-SHA256 of the
// canonical message under secret. Comparison is constant time; malformed or
// empty inputs yield false rather than an error. The function is pure and
// safe to call repeatedly with the same input.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	if secret == "" {
		return false
	}
	if strings.TrimSpace(orderID) == "" || strings.TrimSpace(paymentID) == "" || signature == "" {
		return false
	}
	expected := ExpectedSignature(orderID, paymentID, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
