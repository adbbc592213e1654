package errors

// Code is a machine-readable error code of the form CATEGORY_NNN.
// Codes are stable once published; callers match on them in logs and
// dashboards.
type Code string

const (
	// CodeValidation is a generic input validation failure.
	CodeValidation Code = "VAL_001"
	// CodeValidationRequired reports a missing required value, such as an
	// empty id query parameter or an unset configuration field.
	CodeValidationRequired Code = "VAL_002"
	// CodeValidationFormat reports a value that could not be parsed, such
	// as an invalid JSON request body.
	CodeValidationFormat Code = "VAL_003"

	// CodeAuthentication is the single opaque outcome for every rejected
	// bearer token. The precise reason is attached as error details and
	// logged, never returned to the caller.
	CodeAuthentication Code = "AUTH_001"
	// CodeAuthenticationExpired marks tokens outside their validity window.
	CodeAuthenticationExpired Code = "AUTH_002"
	// CodeAuthenticationInvalid marks malformed or unverifiable tokens.
	CodeAuthenticationInvalid Code = "AUTH_003"

	// CodeNotFound is a generic not found error.
	CodeNotFound Code = "NF_001"
	// CodeNotFoundResource reports a document missing from the store.
	CodeNotFoundResource Code = "NF_003"

	// CodeConflict reports an operation that conflicts with current
	// state, such as starting a service that is already running.
	CodeConflict Code = "CONF_001"

	// CodeInternal is an unexpected internal failure.
	CodeInternal Code = "INT_001"
	// CodeInternalDatabase reports a failed document store operation.
	CodeInternalDatabase Code = "INT_002"
	// CodeInternalConfiguration reports configuration that prevents the
	// process from starting.
	CodeInternalConfiguration Code = "INT_003"

	// CodeUnavailable is a generic unavailable error.
	CodeUnavailable Code = "UNAVAIL_001"
	// CodeUnavailableDependency reports an unreachable dependency: the
	// identity provider metadata endpoints, the product catalog, or the
	// document store.
	CodeUnavailableDependency Code = "UNAVAIL_002"

	// CodeTimeout is a generic timeout.
	CodeTimeout Code = "TIMEOUT_001"
	// CodeTimeoutDatabase reports a store operation that exceeded its
	// deadline.
	CodeTimeoutDatabase Code = "TIMEOUT_002"
	// CodeTimeoutDependency reports an outbound call that exceeded its
	// deadline.
	CodeTimeoutDependency Code = "TIMEOUT_003"
)

// String returns the code as a string.
func (c Code) String() string {
	return string(c)
}

// Category returns the prefix before the first underscore ("AUTH" for
// "AUTH_001"). A code without an underscore is its own category.
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
