// Package secrets generates and persists the cryptographic material used by
// the rendered stack: the long-lived RSA signing key, the database password
// and per-render secret keys.
package secrets

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
)

const (
	// rsaBits is the modulus size for the generated signing key.
	rsaBits = 3072

	// passwordLength is the length of generated database passwords.
	passwordLength = 24

	// secretKeyBytes is the entropy of a generated secret key; the key is
	// hex-encoded, so the rendered value is twice as long.
	secretKeyBytes = 32
)

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// KeyGenerationError indicates that secret or key material could not be
// created or persisted. It is always fatal for the run.
type KeyGenerationError struct {
	// Path is the destination file, if the failure happened while persisting.
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *KeyGenerationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("generate key material for %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("generate key material: %v", e.Err)
}

func (e *KeyGenerationError) Unwrap() error { return e.Err }

// EnsureRSAKey guarantees that a PEM-encoded RSA private key exists at path.
// An existing file is always reused as-is, never regenerated or rewritten.
// A newly generated key is 3072-bit, PKCS#1 PEM with a trailing newline.
// It returns the key bytes as persisted and whether a new key was created.
func EnsureRSAKey(path string) ([]byte, bool, error) {
	if data, err := os.ReadFile(path); err == nil {
		return data, false, nil
	} else if !os.IsNotExist(err) {
		return nil, false, &KeyGenerationError{Path: path, Err: err}
	}

	key, err := rsa.GenerateKey(rand.Reader, rsaBits)
	if err != nil {
		return nil, false, &KeyGenerationError{Path: path, Err: err}
	}

	// pem.EncodeToMemory always terminates the block with a newline, which
	// some consumers of the key file require.
	data := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, false, &KeyGenerationError{Path: path, Err: err}
	}
	return data, true, nil
}

// LoadRSAKey reads back a previously persisted key file verbatim.
func LoadRSAKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read RSA key %q: %w", path, err)
	}
	return data, nil
}

// NewSecretKey returns a fresh random application secret key. Every call
// produces an independent value; callers that need one value in several
// places must call once and reuse the result.
func NewSecretKey() (string, error) {
	buf := make([]byte, secretKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", &KeyGenerationError{Err: err}
	}
	return hex.EncodeToString(buf), nil
}

// NewPassword returns a random alphanumeric password suitable for the
// database superuser.
func NewPassword() (string, error) {
	out := make([]byte, passwordLength)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", &KeyGenerationError{Err: err}
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}
