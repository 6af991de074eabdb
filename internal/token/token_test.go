package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	codec, err := NewCodec("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	now := time.Now()
	for _, id := range []int64{1, 42, 987654321} {
		tok, err := codec.Issue(id, now)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		got, err := codec.Verify(tok, now)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if got != id {
			t.Fatalf("round trip subject mismatch: got %d want %d", got, id)
		}
	}
}

func TestTokenWireShape(t *testing.T) {
	codec, err := NewCodec("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	now := time.Unix(1700000000, 0)
	tok, err := codec.Issue(7, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(tok, ".")
	if len(parts) != 2 {
		t.Fatalf("expected exactly one separator, got %d parts", len(parts))
	}
	body, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		t.Fatalf("payload is not standard base64: %v", err)
	}
	var p struct {
		UserID int64 `json:"user_id"`
		Exp    int64 `json:"exp"`
	}
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if p.UserID != 7 {
		t.Fatalf("unexpected subject: %d", p.UserID)
	}
	if p.Exp != now.Unix()+3600 {
		t.Fatalf("unexpected expiry: %d", p.Exp)
	}
	if len(parts[1]) != 64 || strings.ToLower(parts[1]) != parts[1] {
		t.Fatalf("signature is not lowercase hex sha256: %q", parts[1])
	}
}

func TestVerifyExpired(t *testing.T) {
	codec, _ := NewCodec("test-secret", time.Minute)
	now := time.Now()
	tok, err := codec.Issue(1, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := codec.Verify(tok, now.Add(2*time.Minute)); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	codec, _ := NewCodec("test-secret", time.Hour)
	now := time.Now()
	tok, err := codec.Issue(1, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	flip := func(b byte) byte {
		if b == 'a' {
			return 'b'
		}
		return 'a'
	}
	tampered := tok[:len(tok)-1] + string(flip(tok[len(tok)-1]))
	if _, err := codec.Verify(tampered, now); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer, _ := NewCodec("secret-one", time.Hour)
	verifier, _ := NewCodec("secret-two", time.Hour)
	now := time.Now()
	tok, err := issuer.Issue(1, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(tok, now); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	codec, _ := NewCodec("test-secret", time.Hour)
	now := time.Now()
	tok, err := codec.Issue(1, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	noSeparator := strings.ReplaceAll(tok, ".", "")
	for _, bad := range []string{"", ".", "only-one-part", noSeparator, "." + strings.Split(tok, ".")[1], strings.Split(tok, ".")[0] + "."} {
		if _, err := codec.Verify(bad, now); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("token %q: expected ErrMalformedToken, got %v", bad, err)
		}
	}
}

func TestVerifyMalformedPayloadWithValidSignature(t *testing.T) {
	codec, _ := NewCodec("test-secret", time.Hour)
	// Signed but not base64: signature passes, decode must fail.
	encoded := "not base64!!"
	tok := encoded + "." + codec.sign(encoded)
	if _, err := codec.Verify(tok, time.Now()); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}

func TestNewCodecRequiresSecret(t *testing.T) {
	if _, err := NewCodec("  ", time.Hour); err == nil {
		t.Fatalf("expected empty secret to fail")
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/books", nil)
	if _, ok := BearerToken(r); ok {
		t.Fatalf("expected no token without header")
	}
	r.Header.Set("Authorization", "Bearer")
	if _, ok := BearerToken(r); ok {
		t.Fatalf("expected no token without credential segment")
	}
	r.Header.Set("Authorization", "Bearer abc.def")
	tok, ok := BearerToken(r)
	if !ok || tok != "abc.def" {
		t.Fatalf("unexpected token: %q ok=%v", tok, ok)
	}
}
