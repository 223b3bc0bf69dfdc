package util

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Changing these invalidates no stored hashes because
// every hash encodes the parameters it was produced with.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16

	argonPrefix = "argon2id"
)

var (
	jwtSecret     = getEnv("JWTSECRET", "")
	jwtSecretByte = []byte(jwtSecret)
	jwtMutex      sync.RWMutex
)

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value
}

// GenerateSalt returns a new random salt, base64-encoded.
func GenerateSalt() (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(salt), nil
}

// HashPasswordArgon2 derives an Argon2id hash of password with the given
// base64-encoded salt. The result is a self-describing string of the form
// argon2id$<time>$<memory>$<threads>$<salt>$<hash>.
func HashPasswordArgon2(password, salt string) (string, error) {
	rawSalt, err := base64.RawStdEncoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("invalid salt encoding: %w", err)
	}
	key := argon2.IDKey([]byte(password), rawSalt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("%s$%d$%d$%d$%s$%s",
		argonPrefix, argonTime, argonMemory, argonThreads,
		salt, base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifyPassword checks a plaintext password against a stored Argon2id hash
// using its embedded parameters. The comparison is constant-time.
func VerifyPassword(password, storedHash string) (bool, error) {
	parts := strings.Split(storedHash, "$")
	if len(parts) != 6 || parts[0] != argonPrefix {
		return false, fmt.Errorf("unrecognized password hash format")
	}

	var t, m uint32
	var p uint8
	if _, err := fmt.Sscanf(strings.Join(parts[1:4], "$"), "%d$%d$%d", &t, &m, &p); err != nil {
		return false, fmt.Errorf("invalid password hash parameters: %w", err)
	}

	rawSalt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("invalid salt encoding: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("invalid hash encoding: %w", err)
	}

	key := argon2.IDKey([]byte(password), rawSalt, t, m, p, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

// SetJWTSecret allows tests or runtime code to update the JWT secret used for
// token signing. This function is thread-safe and can be called concurrently.
func SetJWTSecret(secret string) {
	jwtMutex.Lock()
	defer jwtMutex.Unlock()
	jwtSecret = secret
	jwtSecretByte = []byte(secret)
}

// GetJWTSecretByte returns a copy of the current JWT secret bytes in a thread-safe manner.
func GetJWTSecretByte() []byte {
	jwtMutex.RLock()
	defer jwtMutex.RUnlock()
	return append([]byte(nil), jwtSecretByte...)
}
