package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("pw123456")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == "pw123456" {
		t.Fatalf("hash must not equal the plain password")
	}
	if !CheckPassword("pw123456", hash) {
		t.Fatalf("expected password to match its hash")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected wrong password to be rejected")
	}
}

func TestBurnCheck_AlwaysFails(t *testing.T) {
	t.Parallel()

	if BurnCheck("anything") {
		t.Fatalf("BurnCheck must never succeed")
	}
}
