// Package auth holds the session token generator and the authorization
// guard.
package auth

import "github.com/achildrenmile/qslcardgenerator/internal/common"

// TokenBytes is the entropy of a session token. 32 bytes = 256 bits,
// hex-encoded to a fixed 64-character opaque string.
const TokenBytes = 32

// GenerateToken draws a new session token from the system CSPRNG.
func GenerateToken() (string, error) {
	return common.MakeRandHexString(TokenBytes)
}
