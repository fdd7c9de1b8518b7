package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AssertionLifetime is the validity window of an App assertion. GitHub rejects
// App JWTs that live longer than ten minutes.
const AssertionLifetime = 600 * time.Second

// AppCredential identifies the GitHub App. PrivateKey is PEM text and may carry
// literal "\n" escapes when it comes from an environment variable.
type AppCredential struct {
	AppID      string
	PrivateKey string
}

// SignedAssertion is a single-use App JWT.
type SignedAssertion struct {
	Token     string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Algorithm string
}

// CredentialError reports an App identity or private key that can never be
// used. It is not worth retrying.
type CredentialError struct {
	Reason string
	Err    error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credential error: %s: %v", e.Reason, e.Err)
	}
	return "credential error: " + e.Reason
}

func (e *CredentialError) Unwrap() error { return e.Err }

// NormalizePrivateKey turns literal "\n" sequences into real newlines.
func NormalizePrivateKey(raw string) []byte {
	return []byte(strings.ReplaceAll(raw, `\n`, "\n"))
}

// ParsePrivateKey parses a PKCS#1 or PKCS#8 RSA key after normalization.
func ParsePrivateKey(raw string) (*rsa.PrivateKey, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &CredentialError{Reason: "missing private key"}
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(NormalizePrivateKey(raw))
	if err != nil {
		return nil, &CredentialError{Reason: "invalid private key", Err: err}
	}
	return key, nil
}

// MintAssertion signs {iss, iat, exp} with RS256. It performs no I/O.
func MintAssertion(cred AppCredential, now time.Time) (SignedAssertion, error) {
	if cred.AppID == "" {
		return SignedAssertion{}, &CredentialError{Reason: "missing app id"}
	}
	key, err := ParsePrivateKey(cred.PrivateKey)
	if err != nil {
		return SignedAssertion{}, err
	}

	issuedAt := now.Truncate(time.Second)
	expiresAt := issuedAt.Add(AssertionLifetime)
	claims := jwt.RegisteredClaims{
		Issuer:    cred.AppID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return SignedAssertion{}, &CredentialError{Reason: "signing failed", Err: err}
	}
	return SignedAssertion{
		Token:     token,
		Issuer:    cred.AppID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Algorithm: jwt.SigningMethodRS256.Alg(),
	}, nil
}

// Minter mints assertions against an injectable clock.
type Minter struct {
	now func() time.Time
}

func NewMinter() *Minter {
	return NewMinterWithNow(time.Now)
}

func NewMinterWithNow(now func() time.Time) *Minter {
	return &Minter{now: now}
}

func (m *Minter) Mint(cred AppCredential) (SignedAssertion, error) {
	return MintAssertion(cred, m.now())
}

// IsCredentialError reports whether err carries a CredentialError.
func IsCredentialError(err error) bool {
	var credErr *CredentialError
	return errors.As(err, &credErr)
}
