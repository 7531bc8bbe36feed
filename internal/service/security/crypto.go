// Package security implements authentication, session tokens, and the
// group-based authorization engine.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters. Changing these invalidates no stored hashes: the salt
// and derived key are re-computed with the same parameters at verify time, so
// bump them only together with a rehash-on-login migration.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// HashPassword derives an argon2id hash, returned as "salthex:keyhex".
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches the encoded hash. A
// malformed hash verifies as false rather than erroring, so a corrupt
// credential row behaves like a wrong password.
func VerifyPassword(encoded, password string) bool {
	salthex, keyhex, ok := strings.Cut(encoded, ":")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(salthex)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(keyhex)
	if err != nil || len(want) == 0 {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
