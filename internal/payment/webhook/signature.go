package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/tair/verse-payments/internal/payment/domain"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body
const SignatureHeader = "X-Razorpay-Signature"

// EventIDHeader carries the gateway's unique delivery id
const EventIDHeader = "X-Razorpay-Event-Id"

// Verifier checks webhook signatures against the shared secret
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the given webhook secret
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign returns the hex signature of body
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares signature to the HMAC of the exact body bytes in constant time
func (v *Verifier) Verify(body []byte, signature string) error {
	if len(v.secret) == 0 || signature == "" {
		return domain.ErrInvalidSignature
	}

	given, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), given) {
		return domain.ErrInvalidSignature
	}
	return nil
}
