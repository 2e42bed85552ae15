package payments

import (
	"strings"
	"testing"
)

func TestExpectedSignatureKnownVector(t *testing.T) {
	got := ExpectedSignature("order_abc", "pay_xyz", "s3cr3t")
	want := "ee21698235c31aef5bb049b86d1c00014db7de75dbe78cb4ed9ffa8e90855655"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestVerifySignatureAcceptsMatchingSignature(t *testing.T) {
	orderID := "order_MkzJROAminsrbb"
	paymentID := "pay_MkzQX2FIwwIRQU"
	secret := "test_secret_key"

	sig := ExpectedSignature(orderID, paymentID, secret)
	if sig != "6df6cd0f98d98a9cbf350804388524b64dd4d9d5dbce59b9478dd9439f51aa75" {
		t.Fatalf("unexpected signature: %s", sig)
	}
	if !VerifySignature(orderID, paymentID, sig, secret) {
		t.Fatalf("expected matching signature to verify")
	}
}

func TestVerifySignatureIsDeterministic(t *testing.T) {
	first := ExpectedSignature("order_1", "pay_1", "key")
	second := ExpectedSignature("order_1", "pay_1", "key")
	if first != second {
		t.Fatalf("signatures differ: %s vs %s", first, second)
	}
}

func TestVerifySignatureRejectsTamperedInput(t *testing.T) {
	orderID := "order_MkzJROAminsrbb"
	paymentID := "pay_MkzQX2FIwwIRQU"
	secret := "test_secret_key"
	sig := ExpectedSignature(orderID, paymentID, secret)

	cases := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		secret    string
	}{
		{"different order", "order_other", paymentID, sig, secret},
		{"different payment", orderID, "pay_other", sig, secret},
		{"different secret", orderID, paymentID, sig, "other_secret"},
		{"flipped hex digit", orderID, paymentID, flipLastHexDigit(sig), secret},
		{"upper-cased signature", orderID, paymentID, strings.ToUpper(sig), secret},
		{"truncated signature", orderID, paymentID, sig[:len(sig)-2], secret},
		{"padded signature", orderID, paymentID, sig + "00", secret},
		{"empty signature", orderID, paymentID, "", secret},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if VerifySignature(tc.orderID, tc.paymentID, tc.signature, tc.secret) {
				t.Fatalf("expected verification to fail")
			}
		})
	}
}

func TestVerifySignatureRejectsMissingFields(t *testing.T) {
	sig := ExpectedSignature("order_1", "pay_1", "key")
	if VerifySignature("", "pay_1", sig, "key") {
		t.Fatalf("expected empty order id to fail")
	}
	if VerifySignature("order_1", "", sig, "key") {
		t.Fatalf("expected empty payment id to fail")
	}
	if VerifySignature("order_1", "pay_1", sig, "") {
		t.Fatalf("expected empty secret to fail")
	}
}

func flipLastHexDigit(sig string) string {
	if sig == "" {
		return sig
	}
	last := sig[len(sig)-1]
	replacement := byte('0')
	if last == '0' {
		replacement = '1'
	}
	return sig[:len(sig)-1] + string(replacement)
}
