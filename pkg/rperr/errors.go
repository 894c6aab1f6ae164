// Package rperr defines the relying-party core's error taxonomy,
// kept deliberately small per spec: a precondition-violation category
// that is always fatal, and a processing-failure category describing a
// well-formed input that produced an unacceptable result.
package rperr

import "fmt"

// ArgumentError reports a precondition violation: a wrong runtime type,
// an empty required string, an unsupported enum value, or inconsistent
// client metadata. Callers should treat it as a programmer error, never
// retry, and never attempt to recover from it mid-flow.
type ArgumentError struct {
	Param   string
	Message string
}

func (e *ArgumentError) Error() string {
	if e.Param == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Param, e.Message)
}

// NewArgumentError builds an ArgumentError for the named parameter.
func NewArgumentError(param, format string, args ...interface{}) *ArgumentError {
	return &ArgumentError{Param: param, Message: fmt.Sprintf(format, args...)}
}

// ProcessingError reports that a well-formed input (a signature, a
// response body, a token) failed a security or schema check: wrong
// status code, signature mismatch, issuer mismatch, claim out of
// window, unknown key, and so on.
type ProcessingError struct {
	Code    string // short machine-checkable reason, e.g. "bad_signature"
	Message string
	Cause   error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessingError) Unwrap() error { return e.Cause }

// NewProcessingError builds a ProcessingError with the given reason code.
func NewProcessingError(code, format string, args ...interface{}) *ProcessingError {
	return &ProcessingError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapProcessingError builds a ProcessingError wrapping a lower-level
// cause (e.g. a crypto/x509 or encoding/json error).
func WrapProcessingError(cause error, code, format string, args ...interface{}) *ProcessingError {
	return &ProcessingError{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// UnsupportedOperationError is a ProcessingError subtype for a branch
// that intentionally refuses to proceed: an unknown algorithm, a
// modulus too small, a JWE-structured token presented where a JWS was
// expected, a hybrid/implicit authorization response, or a DPoP public
// key that isn't marked extractable.
type UnsupportedOperationError struct {
	*ProcessingError
}

// NewUnsupportedOperationError builds an UnsupportedOperationError.
func NewUnsupportedOperationError(format string, args ...interface{}) *UnsupportedOperationError {
	return &UnsupportedOperationError{
		ProcessingError: NewProcessingError("unsupported_operation", format, args...),
	}
}
