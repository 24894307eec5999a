package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature recomputes an HMAC-SHA256 over the raw request body and
// compares it in constant time against the provider-supplied header. The
// hash must run over the exact bytes the provider signed; re-serializing a
// parsed body does not round-trip key order or whitespace. The header is
// hex, optionally prefixed with "sha256=". Missing or malformed input fails
// closed.
func VerifySignature(secret string, body []byte, header string) bool {
	if secret == "" {
		return false
	}

	sig := strings.TrimSpace(header)
	if after, ok := strings.CutPrefix(strings.ToLower(sig), "sha256="); ok {
		sig = after
	}
	if sig == "" {
		return false
	}

	provided, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}

// Sign computes the hex signature for a body. Used by tests and by local
// tooling that simulates provider deliveries.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
