package auth

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// VerifiedPayload is a token payload whose signature checked out against
// a key from the provider's key set.
type VerifiedPayload struct {
	Claims    jwt.MapClaims
	KeyID     string
	Algorithm string
}

// VerifySignature checks seg's signature against the key named by its
// "kid" header. allowed restricts the header's "alg"; nil means
// [DefaultAllowedAlgorithms].
//
// Errors wrap one of [ErrAlgorithmNotAllowed], [ErrUnknownKey],
// [ErrAlgorithmMismatch] or [ErrInvalidSignature]. Only ErrUnknownKey is
// worth a metadata refresh.
func VerifySignature(seg *Segments, md *ProviderMetadata, allowed []string) (*VerifiedPayload, error) {
	if allowed == nil {
		allowed = DefaultAllowedAlgorithms
	}

	alg := seg.Algorithm()
	if alg == "" || strings.EqualFold(alg, "none") || !slices.Contains(allowed, alg) {
		return nil, fmt.Errorf("%w: %q", ErrAlgorithmNotAllowed, alg)
	}
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return nil, fmt.Errorf("%w: %q has no implementation", ErrAlgorithmNotAllowed, alg)
	}

	key, err := selectKey(seg.KeyID(), md)
	if err != nil {
		return nil, err
	}
	if err := keyAccepts(key, alg); err != nil {
		return nil, err
	}

	if err := method.Verify(seg.SigningInput, seg.Signature, key.Key); err != nil {
		return nil, fmt.Errorf("%w: kid %q: %w", ErrInvalidSignature, key.ID, err)
	}
	return &VerifiedPayload{Claims: seg.Claims, KeyID: key.ID, Algorithm: alg}, nil
}

// selectKey finds the key by id. A token without "kid" is only accepted
// when the set holds exactly one key.
func selectKey(kid string, md *ProviderMetadata) (SigningKey, error) {
	if kid == "" {
		if len(md.SigningKeys) == 1 {
			for _, k := range md.SigningKeys {
				return k, nil
			}
		}
		return SigningKey{}, fmt.Errorf("%w: token has no kid and the key set holds %d keys",
			ErrUnknownKey, len(md.SigningKeys))
	}
	key, ok := md.Key(kid)
	if !ok {
		return SigningKey{}, fmt.Errorf("%w: kid %q", ErrUnknownKey, kid)
	}
	return key, nil
}

// keyAccepts rejects an "alg" that the key was not made for. A declared
// key algorithm must match exactly; otherwise the key type decides the
// family, and EC keys also pin the curve.
func keyAccepts(key SigningKey, alg string) error {
	if key.Algorithm != "" && key.Algorithm != alg {
		return fmt.Errorf("%w: kid %q declares %s, token uses %s", ErrAlgorithmMismatch, key.ID, key.Algorithm, alg)
	}

	ok := false
	switch k := key.Key.(type) {
	case *rsa.PublicKey:
		ok = strings.HasPrefix(alg, "RS") || strings.HasPrefix(alg, "PS")
	case *ecdsa.PublicKey:
		ok = ecdsaAlgorithm(k.Curve.Params().Name) == alg
	case ed25519.PublicKey:
		ok = alg == "EdDSA"
	}
	if !ok {
		return fmt.Errorf("%w: kid %q is a %s key, token uses %s", ErrAlgorithmMismatch, key.ID, key.KeyType, alg)
	}
	return nil
}

func ecdsaAlgorithm(curve string) string {
	switch curve {
	case "P-256":
		return "ES256"
	case "P-384":
		return "ES384"
	case "P-521":
		return "ES512"
	default:
		return ""
	}
}
