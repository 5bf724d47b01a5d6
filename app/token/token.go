package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTTL is the unsubscribe link horizon. Digest emails go out weekly,
// so a month covers several issues before a link goes stale.
const DefaultTTL = 30 * 24 * time.Hour

// ErrInvalid is returned for every verification failure. Callers must not
// learn whether a token was malformed, forged or merely expired.
var ErrInvalid = errors.New("invalid token")

type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Exp   int64  `json:"exp"`
}

// Issuer signs and verifies unsubscribe tokens. Token format:
// base64url of "<json-payload>:<hex-hmac-sha256>". The payload JSON itself
// contains colons, so verification splits on the last one.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    DefaultTTL,
		now:    time.Now,
	}
}

// NewIssuerWithClock is used by tests to control expiry.
func NewIssuerWithClock(secret string, ttl time.Duration, now func() time.Time) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: now}
}

func (i *Issuer) Generate(id, email string) (string, error) {
	claims := Claims{
		ID:    id,
		Email: strings.ToLower(email),
		Exp:   i.now().Add(i.ttl).Unix(),
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token payload: %w", err)
	}

	signature := i.sign(payload)
	token := base64.RawURLEncoding.EncodeToString([]byte(string(payload) + ":" + signature))
	return token, nil
}

func (i *Issuer) Verify(token string) (*Claims, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		// Tolerate padded base64url produced by other encoders.
		decoded, err = base64.URLEncoding.DecodeString(token)
		if err != nil {
			return nil, ErrInvalid
		}
	}

	idx := strings.LastIndex(string(decoded), ":")
	if idx <= 0 || idx == len(decoded)-1 {
		return nil, ErrInvalid
	}
	payload := decoded[:idx]
	signature := string(decoded[idx+1:])

	expected := i.sign(payload)
	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return nil, ErrInvalid
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrInvalid
	}

	if claims.Exp != 0 && claims.Exp < i.now().Unix() {
		return nil, ErrInvalid
	}

	return &claims, nil
}

func (i *Issuer) sign(payload []byte) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// ConstantTimeEquals compares a provided secret against the configured one
// without leaking the match position. An empty configured secret never
// matches, so endpoints stay disabled until a secret is set.
func ConstantTimeEquals(provided, configured string) bool {
	if provided == "" || configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) == 1
}
