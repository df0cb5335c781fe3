package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// PseudonymizeVisitor maps a raw visitor cookie to a stable keyed digest so
// scan events never store the cookie itself. It returns "" when either input
// is blank.
func PseudonymizeVisitor(visitorRef, secret string) string {
	cleanRef := strings.TrimSpace(visitorRef)
	cleanSecret := strings.TrimSpace(secret)
	if cleanRef == "" || cleanSecret == "" {
		return ""
	}

	mac := hmac.New(sha256.New, []byte(cleanSecret))
	_, _ = mac.Write([]byte(cleanRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyVisitor reports whether digest was produced from visitorRef with
// secret.
func VerifyVisitor(visitorRef, digest, secret string) bool {
	expected := PseudonymizeVisitor(visitorRef, secret)
	if expected == "" {
		return false
	}

	provided := strings.ToLower(strings.TrimSpace(digest))
	if len(provided) != len(expected) {
		return false
	}

	return hmac.Equal([]byte(provided), []byte(expected))
}
