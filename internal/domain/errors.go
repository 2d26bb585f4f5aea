package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrHandoffInvalid      = errors.New("handoff token is invalid, expired or already used")
	ErrUpstreamRejected    = errors.New("upstream authority rejected the session")
	ErrUpstreamUnavailable = errors.New("upstream authority unreachable")
	ErrMalformedProfile    = errors.New("upstream profile is missing required fields")
)

// BridgeErrorKind classifies why a bridge attempt failed. Kinds are logged and
// counted; they are never shown to the browser.
type BridgeErrorKind string

const (
	KindMissingUpstreamSession   BridgeErrorKind = "missing_upstream_session"
	KindUpstreamValidationFailed BridgeErrorKind = "upstream_validation_failed"
	KindMalformedUpstreamProfile BridgeErrorKind = "malformed_upstream_profile"
	KindProvisioningError        BridgeErrorKind = "provisioning_error"
	KindTokenEncodingError       BridgeErrorKind = "token_encoding_error"
	KindHandoffInvalid           BridgeErrorKind = "handoff_invalid"
)

// BridgeError carries the failure kind alongside the underlying cause.
type BridgeError struct {
	Kind BridgeErrorKind
	Err  error
}

// NewBridgeError wraps err with the given kind.
func NewBridgeError(kind BridgeErrorKind, err error) *BridgeError {
	return &BridgeError{Kind: kind, Err: err}
}

func (e *BridgeError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// KindOf returns the bridge error kind carried by err, or "" when err is not a
// BridgeError.
func KindOf(err error) BridgeErrorKind {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}
