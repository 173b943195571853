package main

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrSessionExpired indicates the QR ticket expired before it was confirmed.
// The caller has to request a new QR session.
var ErrSessionExpired = errors.New("qr session expired")

var (
	// ErrMissingCookieToken is returned when a cookie string carries no session token.
	ErrMissingCookieToken = errors.New("no cookie token found in cookie")

	// ErrMissingAccountID is returned when the account id is neither in the cookie
	// nor recoverable from the token lookup.
	ErrMissingAccountID = errors.New("unable to determine account id, supply account_id with the cookie")
)

// =============================================================================
// Vendor Errors
// =============================================================================

// VendorError is a non-zero retcode returned by a vendor endpoint.
// Message is already localized by the vendor and is shown to the user unchanged.
type VendorError struct {
	Retcode int
	Message string
}

func (e *VendorError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("vendor retcode %d", e.Retcode)
	}
	return e.Message
}

// RiskVerificationRequired is the "new device" response of the password login.
// The login continues through SendSMS / VerifySMS with ActionTicket.
type RiskVerificationRequired struct {
	Vendor       *VendorError
	ActionTicket string
	VerifyInfo   map[string]any
}

func (e *RiskVerificationRequired) Error() string {
	return e.Vendor.Error()
}

func (e *RiskVerificationRequired) Unwrap() error {
	return e.Vendor
}

// IssuanceError is a rejected authKey issuance.
type IssuanceError struct {
	Vendor *VendorError
}

func (e *IssuanceError) Error() string {
	return "authkey issuance failed: " + e.Vendor.Error()
}

func (e *IssuanceError) Unwrap() error {
	return e.Vendor
}

// FingerprintError is a failed device fingerprint request.
type FingerprintError struct {
	Retcode int
	Message string
}

func (e *FingerprintError) Error() string {
	return fmt.Sprintf("device fingerprint failed (retcode %d): %s", e.Retcode, e.Message)
}

// =============================================================================
// Local Errors
// =============================================================================

// EncryptionError wraps a key import or encryption failure. The key is static,
// so retrying cannot succeed.
type EncryptionError struct {
	Err error
}

func (e *EncryptionError) Error() string {
	return "encryption failed: " + e.Err.Error()
}

func (e *EncryptionError) Unwrap() error {
	return e.Err
}

// NetworkError wraps a transport failure (connect, timeout, unreadable body).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AsVendorError extracts the vendor error from err, if any.
func AsVendorError(err error) (*VendorError, bool) {
	var ve *VendorError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// =============================================================================
// Retryable Errors
// =============================================================================

// retryableErrorPatterns contains error message substrings that indicate retryable errors.
var retryableErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"i/o timeout",
	"context deadline exceeded",
	"TLS handshake timeout",
	"EOF",
	"malformed HTTP response",
	"transport connection broken",
	"use of closed network connection",
}

// IsRetryableError reports whether err is a transient transport failure.
// Vendor errors are never retryable: their cause is credential or state.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := AsVendorError(err); ok {
		return false
	}

	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}

	if isNetworkTimeout(err) {
		return true
	}

	return containsRetryablePattern(err.Error())
}

func isNetworkTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func containsRetryablePattern(errStr string) bool {
	for _, pattern := range retryableErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
