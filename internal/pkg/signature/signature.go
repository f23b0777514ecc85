package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Verifier checks webhook payload signatures.
type Verifier interface {
	Sign(payload []byte) string
	Verify(payload []byte, signature string) bool
	Name() string
}

// HMACVerifier implements Verifier using HMAC-SHA256 over the raw body with a
// base64-encoded digest, matching the storefront's webhook signing scheme.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier builds HMACVerifier with provided shared secret.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Sign computes the base64 HMAC digest for a payload.
func (v *HMACVerifier) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify compares the expected digest against the provided signature in
// constant time.
func (v *HMACVerifier) Verify(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := v.Sign(payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (v *HMACVerifier) Name() string {
	return "hmac-sha256"
}
