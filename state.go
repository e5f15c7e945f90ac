package indielogin

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
)

// NewState returns a random value to bind a callback to the request that
// started it.
func NewState() (string, error) {
	return randomString()
}

// VerifyState compares a state from a callback against the one issued. An
// empty value never verifies.
func VerifyState(expected, supplied string) bool {
	if expected == "" || supplied == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}

func randomString() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
