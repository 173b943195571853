package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

// vendorPublicKeyPEM is the passport public key. Account and password are never sent in clear.
const vendorPublicKeyPEM = `-----BEGIN PUBLIC KEY-----
MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEA4PaSFVLqy5C8YliPAJ8a
YuZJPJ+FN7gHMBOo+/AjOpvE9PRAqShQpPvSuJfbPVvZOh6eWYOKKF6WEprx8vvH
z5W9YvJJF0IQ1M3B7h4XAGBVfGhDDQqFh9aNx8hBCqI27TtAoCa2wS9lKLEY5r3A
2UNJqm6bFiLaMlF8mCpjDzMHi8YNTOywZ4uUBRjhGPvLJmfOUHPPpCjPPqxqw8aD
kSPEEwH6F5EIm9qqnqCQMI5BWPQR0LHG0j1g8mF6f7C8K4N5TCwE14WB8JUfLJ1c
FxGLbONhU2N3mSPoiwGNCBMHpKFLTOmWMbfFxBQEqHKNcXbPGYgWmEPqAIm2y1UP
NwIDAQAB
-----END PUBLIC KEY-----
`

// CredentialCipher encrypts login fields with RSA-OAEP (SHA-256).
type CredentialCipher struct {
	pub *rsa.PublicKey
	err error
}

// NewVendorCipher uses the embedded vendor key. An import failure is kept and
// reported by every Encrypt call.
func NewVendorCipher() *CredentialCipher {
	pub, err := parseRSAPublicKey(vendorPublicKeyPEM)
	return &CredentialCipher{pub: pub, err: err}
}

func NewCredentialCipher(pub *rsa.PublicKey) *CredentialCipher {
	if pub == nil {
		return &CredentialCipher{err: errors.New("nil public key")}
	}
	return &CredentialCipher{pub: pub}
}

// Encrypt returns the base64 ciphertext of plaintext. OAEP padding is randomized,
// so equal inputs give different outputs.
func (c *CredentialCipher) Encrypt(plaintext string) (string, error) {
	if c.err != nil {
		return "", &EncryptionError{Err: c.err}
	}
	out, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, c.pub, []byte(plaintext), nil)
	if err != nil {
		return "", &EncryptionError{Err: err}
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

func parseRSAPublicKey(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, errors.New("no PEM block in public key")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, not RSA", key)
	}
	return pub, nil
}
