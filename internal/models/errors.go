package models

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Kind classifies a failed relay call.
type Kind int

const (
	KindGeneric Kind = iota
	KindMissingAuth
	KindInvalidAuth
	KindInvalidMessages
	KindMissingModel
	KindServerMisconfigured
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindMissingAuth:
		return "MissingAuth"
	case KindInvalidAuth:
		return "InvalidAuth"
	case KindInvalidMessages:
		return "InvalidMessages"
	case KindMissingModel:
		return "MissingModel"
	case KindServerMisconfigured:
		return "ServerMisconfigured"
	case KindUpstream:
		return "UpstreamError"
	default:
		return "Generic"
	}
}

// Error categories reported in the envelope's type field.
const (
	TypeSyntaxError = "SyntaxError"
	TypeTypeError   = "TypeError"
	TypeError       = "Error"
)

const upstreamErrorMessage = "Perplexity API error"

// Envelope is the JSON body of every failed response.
type Envelope struct {
	Error   string  `json:"error"`
	Details *string `json:"details,omitempty"`
	Status  *int    `json:"status,omitempty"`
	Type    string  `json:"type,omitempty"`
}

// ProxyError is a failure already mapped to an HTTP status and envelope.
type ProxyError struct {
	Kind       Kind
	StatusCode int
	Envelope   Envelope
	Err        error
}

func (e *ProxyError) Error() string {
	if e.Err != nil {
		return e.Envelope.Error + ": " + e.Err.Error()
	}
	return e.Envelope.Error
}

func (e *ProxyError) Unwrap() error {
	return e.Err
}

func newProxyError(kind Kind, status int, message string) *ProxyError {
	return &ProxyError{
		Kind:       kind,
		StatusCode: status,
		Envelope:   Envelope{Error: message},
	}
}

func MissingAuth() *ProxyError {
	return newProxyError(KindMissingAuth, http.StatusUnauthorized, "Missing authorization header")
}

// InvalidAuth wraps the verifier's error, if any, for logging.
func InvalidAuth(cause error) *ProxyError {
	e := newProxyError(KindInvalidAuth, http.StatusUnauthorized, "Invalid authorization token")
	e.Err = cause
	return e
}

func InvalidMessages() *ProxyError {
	return newProxyError(KindInvalidMessages, http.StatusBadRequest, "Invalid messages format")
}

func MissingModel() *ProxyError {
	return newProxyError(KindMissingModel, http.StatusBadRequest, "Model parameter is required")
}

func ServerMisconfigured() *ProxyError {
	return newProxyError(KindServerMisconfigured, http.StatusInternalServerError, "Server configuration error")
}

// UpstreamFailure propagates a non-2xx Perplexity response, status included.
func UpstreamFailure(status int, body string) *ProxyError {
	e := newProxyError(KindUpstream, status, upstreamErrorMessage)
	e.Envelope.Details = &body
	e.Envelope.Status = &status
	return e
}

// FromFailure maps any error to a ProxyError. Errors that are already
// classified pass through; everything else becomes a generic failure whose
// status is chosen by StatusForMessage.
func FromFailure(err error) *ProxyError {
	var pe *ProxyError
	if errors.As(err, &pe) {
		return pe
	}

	msg := err.Error()
	e := newProxyError(KindGeneric, StatusForMessage(msg), msg)
	e.Envelope.Type = Category(err)
	e.Err = err
	return e
}

// StatusForMessage picks the status of an unclassified failure: 401 when the
// message mentions "authorization", 500 otherwise. The match is a plain
// case-sensitive substring test on the message text.
func StatusForMessage(msg string) int {
	if strings.Contains(msg, "authorization") {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// Category names the class of an unclassified failure.
func Category(err error) string {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return TypeSyntaxError
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) || errors.Is(err, ErrNullBody) {
		return TypeTypeError
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return TypeTypeError
	}

	return TypeError
}
