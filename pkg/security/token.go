package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSecret     = errors.New("no token signing secret provided")
	ErrInvalidToken = errors.New("authorization token invalid")
	ErrForbidden    = errors.New("insufficient role")
)

// Claims is the payload of an admin token. The registered exp claim only
// has whole seconds, ExpiresAtMs is the exact expiry in unix millis.
type Claims struct {
	Username    string `json:"username"`
	Role        string `json:"role"`
	ExpiresAtMs int64  `json:"expMs"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies short-lived HS256 admin tokens. There is no
// revocation list, a token stays valid until it expires.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration, now func() time.Time) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}

	if now == nil {
		now = time.Now
	}

	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    now,
	}, nil
}

// Issue signs a token for the given principal. It returns the token and its
// expiry. The token is accepted up to and including that millisecond.
func (t *TokenIssuer) Issue(subjectID, username, role string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username:    username,
		Role:        role,
		ExpiresAtMs: exp.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subjectID,
			IssuedAt: jwt.NewNumericDate(now),
			// Rounded up so exp never fires before ExpiresAtMs
			ExpiresAt: jwt.NewNumericDate(exp.Add(time.Second - time.Nanosecond)),
		},
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token, %w", err)
	}

	return signed, exp, nil
}

// Verify returns the claims of a token only if the signature checks out,
// the payload decodes and the token hasn't expired.
func (t *TokenIssuer) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(tk *jwt.Token) (any, error) {
		if tk.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", tk.Method.Alg())
		}

		return t.secret, nil
	},
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
		// exp is compared with now at second precision, leeway leaves the
		// final call to ExpiresAtMs
		jwt.WithLeeway(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" || claims.ExpiresAtMs == 0 {
		return nil, ErrInvalidToken
	}

	if claims.ExpiresAtMs < t.now().UnixMilli() {
		return nil, fmt.Errorf("%w, %w", ErrInvalidToken, jwt.ErrTokenExpired)
	}

	return claims, nil
}

// RequireRole fails with ErrForbidden if the claims don't carry role.
func RequireRole(c *Claims, role string) error {
	if c == nil || c.Role != role {
		return ErrForbidden
	}

	return nil
}
