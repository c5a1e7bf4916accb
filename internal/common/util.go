package common

import "crypto/rand"

// RedactToken shortens a bearer token for logs: the first six characters
// followed by "...". Short tokens are fully masked.
func RedactToken(tok string) string {
	const keep = 6
	if tok == "" {
		return ""
	}
	if len(tok) <= 2*keep {
		return "***"
	}
	return tok[:keep] + "..."
}

// GenerateRandByteArray returns size cryptographically random bytes.
// It panics if the system random source fails.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray zeroes b in place. It is a no-op for nil.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
