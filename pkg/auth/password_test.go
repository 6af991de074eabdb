package auth

import "testing"

func TestDigestPasswordAndCheckPassword(t *testing.T) {
	digest := DigestPassword("s3cretpass")
	if len(digest) != 64 {
		t.Fatalf("expected 64-char hex digest, got %d chars", len(digest))
	}
	if digest != DigestPassword("s3cretpass") {
		t.Fatalf("expected deterministic digest")
	}
	if !CheckPassword("s3cretpass", digest) {
		t.Fatalf("expected password check to pass")
	}
	if CheckPassword("wrongpass", digest) {
		t.Fatalf("expected password check to fail")
	}
}

func TestCheckPasswordRejectsForeignDigest(t *testing.T) {
	if CheckPassword("anything", "not-a-digest") {
		t.Fatalf("expected malformed stored digest to fail")
	}
}
