package auth

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Segments is a compact token split into its three parts. Nothing in it
// is trusted until [VerifySignature] succeeds.
type Segments struct {
	// Header is the decoded JOSE header.
	Header map[string]any
	// Claims is the decoded payload. Numbers are kept as json.Number.
	Claims jwt.MapClaims
	// Signature holds the raw signature bytes.
	Signature []byte
	// SigningInput is "header.payload" exactly as received.
	SigningInput string
}

// Algorithm returns the "alg" header or "".
func (s *Segments) Algorithm() string {
	alg, _ := s.Header["alg"].(string)
	return alg
}

// KeyID returns the "kid" header or "".
func (s *Segments) KeyID() string {
	kid, _ := s.Header["kid"].(string)
	return kid
}

// Strict decoding rejects non-canonical base64, so unused trailing bits
// cannot be altered without changing the decoded bytes.
var segmentParser = jwt.NewParser(jwt.WithJSONNumber(), jwt.WithPaddingAllowed(), jwt.WithStrictDecoding())

// ParseToken splits raw into header, payload and signature. It requires
// exactly three non-empty base64url segments whose first two decode to
// JSON objects. Every failure wraps [ErrMalformedToken].
//
// The "alg" header is not interpreted here; an absent or unsupported
// algorithm is rejected by [VerifySignature].
func ParseToken(raw string) (*Segments, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}
	if len(raw) > MaxTokenSize {
		return nil, fmt.Errorf("%w: token exceeds %d bytes", ErrMalformedToken, MaxTokenSize)
	}

	claims := jwt.MapClaims{}
	token, parts, err := segmentParser.ParseUnverified(raw, claims)
	if err != nil && (token == nil || !errors.Is(err, jwt.ErrTokenUnverifiable)) {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: segment %d is empty", ErrMalformedToken, i)
		}
	}
	if token.Header == nil {
		return nil, fmt.Errorf("%w: header is not a JSON object", ErrMalformedToken)
	}

	// A payload of "null" leaves claims empty without an error.
	payload, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrMalformedToken, err)
	}
	if trimmed := bytes.TrimSpace(payload); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrMalformedToken)
	}

	sig, err := segmentParser.DecodeSegment(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %w", ErrMalformedToken, err)
	}

	return &Segments{
		Header:       token.Header,
		Claims:       claims,
		Signature:    sig,
		SigningInput: parts[0] + "." + parts[1],
	}, nil
}
