package auth

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the typed view of a verified payload. Issuer, Audience and
// ExpiresAt and Subject are always present on a value returned by [NewClaims];
// optional claims are read through the getters.
type Claims struct {
	Issuer    string
	Audience  []string
	Subject   string
	ExpiresAt time.Time
	NotBefore *time.Time
	IssuedAt  *time.Time

	raw jwt.MapClaims
}

// displayNameClaims are tried in order for a principal's name.
var displayNameClaims = []string{"name", "preferred_username", "unique_name", "upn"}

// NewClaims checks the shape of the registered claims. A missing or
// mistyped "iss", "aud", "exp" or "sub" wraps [ErrMissingClaim], as does
// a present but mistyped "nbf" or "iat".
func NewClaims(raw jwt.MapClaims) (*Claims, error) {
	iss, err := raw.GetIssuer()
	if err != nil || iss == "" {
		return nil, fmt.Errorf("%w: iss", ErrMissingClaim)
	}
	aud, err := raw.GetAudience()
	if err != nil || len(aud) == 0 {
		return nil, fmt.Errorf("%w: aud", ErrMissingClaim)
	}
	exp, err := raw.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: exp", ErrMissingClaim)
	}
	sub, err := raw.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	c := &Claims{
		Issuer:    iss,
		Audience:  []string(aud),
		Subject:   sub,
		ExpiresAt: exp.Time,
		raw:       raw,
	}
	nbf, err := raw.GetNotBefore()
	if err != nil {
		return nil, fmt.Errorf("%w: nbf", ErrMissingClaim)
	}
	if nbf != nil {
		t := nbf.Time
		c.NotBefore = &t
	}
	iat, err := raw.GetIssuedAt()
	if err != nil {
		return nil, fmt.Errorf("%w: iat", ErrMissingClaim)
	}
	if iat != nil {
		t := iat.Time
		c.IssuedAt = &t
	}
	return c, nil
}

// String returns a string claim. Absent and non-string claims report
// false.
func (c *Claims) String(name string) (string, bool) {
	s, ok := c.raw[name].(string)
	return s, ok
}

// Strings returns a claim that is a string or an array of strings, such
// as "roles" or "groups".
func (c *Claims) Strings(name string) ([]string, bool) {
	switch v := c.raw[name].(type) {
	case string:
		return []string{v}, true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// Get returns any claim as decoded. Numbers are json.Number.
func (c *Claims) Get(name string) (any, bool) {
	v, ok := c.raw[name]
	return v, ok
}

// Raw returns a copy of every claim.
func (c *Claims) Raw() map[string]any {
	return maps.Clone(map[string]any(c.raw))
}

// DisplayName returns the first non-empty display name claim, falling
// back to the subject.
func (c *Claims) DisplayName() string {
	for _, name := range displayNameClaims {
		if s, ok := c.String(name); ok && s != "" {
			return s
		}
	}
	return c.Subject
}

// ValidateClaims applies the issuer, audience and validity window rules
// to a verified payload. The window is inclusive on both ends:
//
//	nbf - skew <= now <= exp + skew
//
// Errors wrap [ErrMissingClaim], [ErrIssuerMismatch],
// [ErrAudienceMismatch], [ErrTokenExpired] or [ErrTokenNotYetValid].
func ValidateClaims(p *VerifiedPayload, cfg *ValidatorConfig, now time.Time) (*Principal, error) {
	c, err := NewClaims(p.Claims)
	if err != nil {
		return nil, err
	}

	if !slices.Contains(cfg.AcceptedIssuers(), c.Issuer) {
		return nil, fmt.Errorf("%w: %q", ErrIssuerMismatch, c.Issuer)
	}

	accepted := cfg.AcceptedAudiences()
	if !slices.ContainsFunc(c.Audience, func(a string) bool { return slices.Contains(accepted, a) }) {
		return nil, fmt.Errorf("%w: %q", ErrAudienceMismatch, c.Audience)
	}

	skew := cfg.ClockSkew
	if now.Add(-skew).After(c.ExpiresAt) {
		return nil, fmt.Errorf("%w: expired at %s", ErrTokenExpired, c.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if c.NotBefore != nil && now.Add(skew).Before(*c.NotBefore) {
		return nil, fmt.Errorf("%w: valid from %s", ErrTokenNotYetValid, c.NotBefore.UTC().Format(time.RFC3339))
	}

	return newPrincipal(c), nil
}
