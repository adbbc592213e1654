// Package errors defines the structured error type shared by every
// SportsLeague package.
//
// # Error Codes
//
// Each error carries a stable machine-readable [Code] whose category
// prefix decides how the HTTP layer answers:
//
//	VAL_xxx     400 Bad Request          malformed request input, bad configuration values
//	AUTH_xxx    401 Unauthorized         missing, malformed or rejected bearer tokens
//	NF_xxx      404 Not Found            documents that do not exist
//	INT_xxx     500 Internal Server Error  store failures, fatal configuration problems
//	UNAVAIL_xxx 503 Service Unavailable  identity provider, catalog or store unreachable
//	TIMEOUT_xxx 504 Gateway Timeout      dependency calls that ran out of time
//
// Token validation relies on the split between AUTH and UNAVAIL: a caller
// presenting a bad token gets AUTH_001, while an identity provider outage
// surfaces as UNAVAIL_002 so that it is never blamed on the caller.
//
// # Usage
//
// Create, wrap and inspect errors:
//
//	err := errors.New(errors.CodeValidationRequired, "CartId is required")
//	err = errors.Wrap(cause, errors.CodeInternalDatabase, "store: upsert failed")
//	if errors.IsUnavailable(err) {
//	    // retry later
//	}
//
// # Details
//
// [Error.Details] carries context that is logged but never sent to
// clients, such as the rejection reason of a bearer token:
//
//	if e, ok := errors.AsError(err); ok {
//	    logger.Warn("request rejected", "code", e.Code, "reason", e.Details["reason"])
//	}
package errors
