package config

// Secret is a string that redacts itself when printed or serialized, for
// passwords and API keys held in configuration structs. The loader sets
// it like any other string field; use [Secret.Value] to read it.
type Secret string

const redacted = "[REDACTED]"

// String returns a placeholder.
func (s Secret) String() string { return redacted }

// GoString returns a placeholder for %#v.
func (s Secret) GoString() string { return redacted }

// Value returns the secret itself.
func (s Secret) Value() string { return string(s) }

// IsSet reports whether the secret is non-empty.
func (s Secret) IsSet() bool { return s != "" }

// MarshalText keeps the secret out of JSON and YAML output.
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }
