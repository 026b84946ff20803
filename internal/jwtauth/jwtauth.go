// Package jwtauth implements the JWT service from spec §4.5: HS256 sign
// and verify, iat/exp claim injection, and an error taxonomy that never
// implies an unbounded-lifetime token. It wraps github.com/kataras/jwt
// for the HMAC signing and base64url codec, adding the spec's explicit
// rejection of tokens that carry no exp claim at all.
package jwtauth

import (
	"errors"
	"strings"
	"time"

	"github.com/kataras/jwt"
)

// Error kinds from spec §4.5: {bad_format, bad_signature, bad_json,
// missing_exp, bad_claim, expired}.
var (
	ErrBadFormat    = errors.New("jwtauth: bad_format")
	ErrBadSignature = errors.New("jwtauth: bad_signature")
	ErrBadJSON      = errors.New("jwtauth: bad_json")
	ErrMissingExp   = errors.New("jwtauth: missing_exp")
	ErrBadClaim     = errors.New("jwtauth: bad_claim")
	ErrExpired      = errors.New("jwtauth: expired")
)

// Service is constructed once by the server façade and shared as an
// immutable reference with every I/O worker (spec §9 "Singleton JWT
// service" — no package-level global).
type Service struct {
	secret         []byte
	defaultTimeout time.Duration
}

// New builds a Service bound to secret, used for both signing and
// verification (HS256 is symmetric).
func New(secret []byte, defaultTimeout time.Duration) *Service {
	return &Service{secret: secret, defaultTimeout: defaultTimeout}
}

// Mint inserts iat and exp into a copy of claims and returns a signed
// token. Every other entry of the claims map is carried through as is.
func (s *Service) Mint(claims map[string]any) (string, error) {
	return s.MintWithTimeout(claims, s.defaultTimeout)
}

// MintWithTimeout is Mint with an explicit lifetime, for endpoints that
// need a token shorter or longer than the service default.
func (s *Service) MintWithTimeout(claims map[string]any, timeout time.Duration) (string, error) {
	now := time.Now()
	merged := make(map[string]any, len(claims)+2)
	for k, v := range claims {
		merged[k] = v
	}
	merged["iat"] = now.Unix()
	merged["exp"] = now.Add(timeout).Unix()

	token, err := jwt.Sign(jwt.HS256, s.secret, merged)
	if err != nil {
		return "", err
	}
	return string(token), nil
}

// Claims is the decoded, verified payload of a token.
type Claims map[string]any

// Verify validates signature, format and expiry, rejecting any token
// that lacks an exp claim outright (spec §4.5: "no implicit forever").
// Signature comparison is constant-time, delegated to kataras/jwt's
// Verify which uses hmac.Equal internally.
func (s *Service) Verify(token string) (Claims, error) {
	verified, err := jwt.Verify(jwt.HS256, s.secret, []byte(token))
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrExpired
		}
		// kataras/jwt folds malformed-token and bad-signature cases into
		// its own internal sentinels; classify by message rather than
		// guessing at exported names that may not exist in every version.
		if msg := err.Error(); strings.Contains(msg, "signat") {
			return nil, ErrBadSignature
		}
		return nil, ErrBadFormat
	}

	var claims Claims
	if err := verified.Claims(&claims); err != nil {
		return nil, ErrBadJSON
	}

	exp, ok := claims["exp"]
	if !ok || exp == nil {
		return nil, ErrMissingExp
	}
	expUnix, ok := toUnix(exp)
	if !ok {
		return nil, ErrBadClaim
	}
	if time.Now().Unix() > expUnix {
		return nil, ErrExpired
	}

	return claims, nil
}

func toUnix(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
