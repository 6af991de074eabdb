// Package token implements the self-issued bearer credential: a JSON
// payload carrying the subject id and expiry, base64-encoded and signed
// with HMAC-SHA256. Verification is stateless recomputation, so issued
// tokens cannot be revoked before expiry.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// DefaultTTL is the default token lifetime.
const DefaultTTL = time.Hour

var (
	// ErrMalformedToken is returned when the token does not consist of a
	// payload and signature, or the payload cannot be decoded.
	ErrMalformedToken = errors.New("Invalid token format")
	// ErrInvalidSignature is returned when the signature does not match
	// the payload.
	ErrInvalidSignature = errors.New("Invalid token")
	// ErrTokenExpired is returned when the token's expiry has elapsed.
	ErrTokenExpired = errors.New("Token has expired")
)

// payload is the signed token body. Field order is fixed so the encoded
// form is canonical.
type payload struct {
	UserID int64 `json:"user_id"`
	Exp    int64 `json:"exp"`
}

// Codec issues and verifies signed member tokens.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec creates a codec for the given signing secret and lifetime.
// A non-positive ttl falls back to DefaultTTL.
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue creates a token for the subject, expiring ttl after now.
func (c *Codec) Issue(subjectID int64, now time.Time) (string, error) {
	body, err := json.Marshal(payload{
		UserID: subjectID,
		Exp:    now.Unix() + int64(c.ttl.Seconds()),
	})
	if err != nil {
		return "", err
	}
	encoded := base64.StdEncoding.EncodeToString(body)
	return encoded + "." + c.sign(encoded), nil
}

// Verify checks signature and expiry and returns the subject id. The
// signature is validated before the payload is decoded.
func (c *Codec) Verify(tok string, now time.Time) (int64, error) {
	encoded, signature, ok := strings.Cut(tok, ".")
	if !ok || encoded == "" || signature == "" {
		return 0, ErrMalformedToken
	}
	expected := c.sign(encoded)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return 0, ErrInvalidSignature
	}
	body, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return 0, ErrMalformedToken
	}
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return 0, ErrMalformedToken
	}
	if p.Exp < now.Unix() {
		return 0, ErrTokenExpired
	}
	return p.UserID, nil
}

func (c *Codec) sign(encoded string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encoded))
	return hex.EncodeToString(mac.Sum(nil))
}

// BearerToken extracts the credential from an Authorization header of the
// form "<scheme> <credential>". The second return reports whether the
// header carried a credential segment at all.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	if tok == "" {
		return "", false
	}
	return tok, true
}
