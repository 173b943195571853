package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&NetworkError{Op: "GET x", Err: errors.New("boom")}, true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("read: i/o timeout"), true},
		{context.DeadlineExceeded, true},
		{&VendorError{Retcode: -101, Message: "authkey timeout"}, false},
		{fmt.Errorf("wrapped: %w", &VendorError{Retcode: -1, Message: "connection reset"}), false},
		{errors.New("invalid authkey"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsRetryableError(tc.err), "%v", tc.err)
	}
}

func TestErrorChainsReachVendorError(t *testing.T) {
	ve := &VendorError{Retcode: -100, Message: "登录失效"}

	issuance := fmt.Errorf("issue: %w", &IssuanceError{Vendor: ve})
	got, ok := AsVendorError(issuance)
	require.True(t, ok)
	assert.Same(t, ve, got)

	risk := &RiskVerificationRequired{Vendor: &VendorError{Retcode: retcodeNewDevice}}
	got, ok = AsVendorError(risk)
	require.True(t, ok)
	assert.Equal(t, retcodeNewDevice, got.Retcode)
	assert.Equal(t, fmt.Sprintf("vendor retcode %d", retcodeNewDevice), risk.Error())

	_, ok = AsVendorError(errors.New("plain"))
	assert.False(t, ok)
}

func TestEncryptionErrorUnwraps(t *testing.T) {
	inner := errors.New("bad key")
	err := &EncryptionError{Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "encryption failed: bad key", err.Error())
}
