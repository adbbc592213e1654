package auth

import (
	"context"
	"errors"
	"fmt"

	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

// Reason names why a request was not authenticated. Reasons appear in
// logs, span attributes and the auth.validations metric, and in the
// "reason" detail of the returned error. They are never sent to callers.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonMissingHeader       Reason = "MissingHeader"
	ReasonInvalidScheme       Reason = "InvalidScheme"
	ReasonMalformedToken      Reason = "MalformedToken"
	ReasonAlgorithmNotAllowed Reason = "AlgorithmNotAllowed"
	ReasonUnknownKey          Reason = "UnknownKey"
	ReasonAlgorithmMismatch   Reason = "AlgorithmMismatch"
	ReasonInvalidSignature    Reason = "InvalidSignature"
	ReasonMissingClaim        Reason = "MissingClaim"
	ReasonIssuerMismatch      Reason = "IssuerMismatch"
	ReasonAudienceMismatch    Reason = "AudienceMismatch"
	ReasonTokenExpired        Reason = "TokenExpired"
	ReasonTokenNotYetValid    Reason = "TokenNotYetValid"
	ReasonMetadataUnavailable Reason = "MetadataUnavailable"
	ReasonUnknown             Reason = "Unknown"
)

// Sentinel errors returned by the individual validation stages. Match
// them with errors.Is; the stages wrap them with context.
var (
	ErrMissingHeader  = errors.New("auth: authorization header is missing")
	ErrInvalidScheme  = errors.New("auth: authorization header is not a bearer credential")
	ErrMalformedToken = errors.New("auth: token is malformed")

	ErrAlgorithmNotAllowed = errors.New("auth: signing algorithm is not allowed")
	ErrUnknownKey          = errors.New("auth: signing key is not in the key set")
	ErrAlgorithmMismatch   = errors.New("auth: signing algorithm does not match the key")
	ErrInvalidSignature    = errors.New("auth: signature is invalid")

	ErrMissingClaim     = errors.New("auth: required claim is missing or malformed")
	ErrIssuerMismatch   = errors.New("auth: issuer is not accepted")
	ErrAudienceMismatch = errors.New("auth: audience is not accepted")
	ErrTokenExpired     = errors.New("auth: token has expired")
	ErrTokenNotYetValid = errors.New("auth: token is not yet valid")

	// ErrMetadataUnavailable means no token can be validated right now.
	// It is never the caller's fault.
	ErrMetadataUnavailable = errors.New("auth: identity provider metadata is unavailable")
)

var reasonTable = []struct {
	err    error
	reason Reason
}{
	{ErrMetadataUnavailable, ReasonMetadataUnavailable},
	{ErrMissingHeader, ReasonMissingHeader},
	{ErrInvalidScheme, ReasonInvalidScheme},
	{ErrMalformedToken, ReasonMalformedToken},
	{ErrAlgorithmNotAllowed, ReasonAlgorithmNotAllowed},
	{ErrUnknownKey, ReasonUnknownKey},
	{ErrAlgorithmMismatch, ReasonAlgorithmMismatch},
	{ErrInvalidSignature, ReasonInvalidSignature},
	{ErrMissingClaim, ReasonMissingClaim},
	{ErrIssuerMismatch, ReasonIssuerMismatch},
	{ErrAudienceMismatch, ReasonAudienceMismatch},
	{ErrTokenExpired, ReasonTokenExpired},
	{ErrTokenNotYetValid, ReasonTokenNotYetValid},
}

// ReasonOf classifies any error produced by this package. It prefers the
// "reason" detail of an *sserr.Error and falls back to the sentinel in
// the chain. nil yields ReasonNone.
func ReasonOf(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	if e, ok := sserr.AsError(err); ok {
		if v, ok := e.Detail("reason"); ok {
			if s, ok := v.(string); ok {
				return Reason(s)
			}
		}
	}
	for _, r := range reasonTable {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonUnknown
}

// unauthorized is the single outcome for every token-content failure.
func unauthorized(reason Reason, cause error) *sserr.Error {
	if cause == nil {
		return sserr.Unauthorized("unauthorized").WithDetail("reason", string(reason))
	}
	return sserr.Wrap(cause, sserr.CodeAuthentication, "unauthorized").
		WithDetail("reason", string(reason))
}

// unavailable is returned when metadata cannot be obtained.
func unavailable(cause error) *sserr.Error {
	return sserr.Wrap(cause, sserr.CodeUnavailableDependency,
		"auth: token validation is temporarily unavailable").
		WithDetail("reason", string(ReasonMetadataUnavailable))
}

// fetchError builds an error matching ErrMetadataUnavailable.
func fetchError(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrMetadataUnavailable, fmt.Errorf(format, args...))
}

// abandoned reports a caller that stopped waiting for a fetch. It cannot
// validate either, so it gets the same classification.
func abandoned(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrMetadataUnavailable, context.Cause(ctx))
}
