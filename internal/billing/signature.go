package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Verifier checks billing webhook authenticity. The secret signs the raw
// request body with HMAC-SHA256; the hex digest travels in a header.
//
// With no secret configured a permissive (development) posture accepts every
// delivery and a strict posture rejects every delivery. The posture is an
// explicit configuration flag, never an implicit default.
type Verifier struct {
	secret []byte
	strict bool
}

func NewVerifier(secret string, strict bool) *Verifier {
	var key []byte
	if trimmed := strings.TrimSpace(secret); trimmed != "" {
		key = []byte(trimmed)
	}
	return &Verifier{secret: key, strict: strict}
}

// Verify reports whether the signature matches the raw body. Comparison is
// constant time.
func (v *Verifier) Verify(rawBody []byte, signature string) bool {
	if v == nil {
		return false
	}
	if len(v.secret) == 0 {
		return !v.strict
	}

	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	computed := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(computed), []byte(signature))
}

// Sign computes the hex HMAC-SHA256 digest of a body. Used by tests and
// outbound tooling.
func (v *Verifier) Sign(rawBody []byte) string {
	if v == nil || len(v.secret) == 0 {
		return ""
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
