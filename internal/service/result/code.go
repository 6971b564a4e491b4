package result

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
)

// codeAlphabet avoids ambiguous characters (0/O, 1/I) since codes are read
// out of an email and typed by hand.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 8

// GenerateAccessCode mints an opaque access code from crypto/rand.
func GenerateAccessCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate access code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// VerifyAccessCode compares a presented code against the stored one in
// constant time.
func VerifyAccessCode(presented, stored string) bool {
	if len(presented) != len(stored) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}
