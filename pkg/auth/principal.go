package auth

import "log/slog"

// Principal is the authenticated caller. It is built only from a token
// whose signature, issuer, audience and validity window all checked out.
type Principal struct {
	subject string
	name    string
	claims  *Claims
}

func newPrincipal(c *Claims) *Principal {
	return &Principal{
		subject: c.Subject,
		name:    c.DisplayName(),
		claims:  c,
	}
}

// Subject returns the "sub" claim, which is never empty.
func (p *Principal) Subject() string { return p.subject }

// Name returns the display name, or the subject when the token carries
// no name claim.
func (p *Principal) Name() string { return p.name }

// ObjectID returns the directory object id ("oid") when present.
func (p *Principal) ObjectID() string {
	oid, _ := p.claims.String("oid")
	return oid
}

// Claims returns the typed claim set.
func (p *Principal) Claims() *Claims { return p.claims }

// ClaimMap returns a copy of every claim.
func (p *Principal) ClaimMap() map[string]any { return p.claims.Raw() }

// LogValue keeps claims out of structured logs.
func (p *Principal) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("subject", p.subject),
		slog.String("name", p.name),
	)
}
