package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashPasscode returns the hex SHA-256 digest of a share passcode. The digest
// is unsalted, so equal passcodes always produce equal digests.
func HashPasscode(passcode string) string {
	sum := sha256.Sum256([]byte(passcode))
	return hex.EncodeToString(sum[:])
}

// VerifyPasscode reports whether candidate hashes to digest.
func VerifyPasscode(candidate, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(HashPasscode(candidate)), []byte(digest)) == 1
}
