package utils

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateToken("google:12345")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	uid, err := ParseUserID(token)
	if err != nil {
		t.Fatalf("ParseUserID failed: %v", err)
	}
	if uid != "google:12345" {
		t.Fatalf("uid = %q", uid)
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := GenerateToken("u1"); err == nil {
		t.Fatal("missing secret must fail")
	}
}

func TestParseUserIDRejectsTampering(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := GenerateToken("u1")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	t.Setenv("JWT_SECRET", "different-secret")
	if _, err := ParseUserID(token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}

	t.Setenv("JWT_SECRET", "test-secret")
	if _, err := ParseUserID("not.a.token"); err == nil {
		t.Fatal("malformed token must be rejected")
	}
}
