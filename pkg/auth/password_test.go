package auth

import "testing"

func TestPassword_VerifyRoundTrip(t *testing.T) {
	pw, err := NewPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("NewPassword: %v", err)
	}
	if !pw.Verify("correct horse battery staple") {
		t.Error("Verify() = false for the original plaintext")
	}
	if pw.Verify("wrong password") {
		t.Error("Verify() = true for a mismatched plaintext")
	}
}

func TestPassword_FromHash(t *testing.T) {
	pw, err := NewPassword("hunter2")
	if err != nil {
		t.Fatalf("NewPassword: %v", err)
	}
	loaded := FromHash(pw.Hashed())
	if !loaded.Verify("hunter2") {
		t.Error("Verify() = false after round-tripping through FromHash/Hashed")
	}
}

func TestPassword_DistinctHashesForSameInput(t *testing.T) {
	a, err := NewPassword("same-input")
	if err != nil {
		t.Fatalf("NewPassword: %v", err)
	}
	b, err := NewPassword("same-input")
	if err != nil {
		t.Fatalf("NewPassword: %v", err)
	}
	if a.Hashed() == b.Hashed() {
		t.Error("two hashes of the same plaintext were identical; bcrypt salt not applied")
	}
}

func TestHashLowCost_VerifiesAgainstBcrypt(t *testing.T) {
	hash, err := HashLowCost("1:1700000000000000000")
	if err != nil {
		t.Fatalf("HashLowCost: %v", err)
	}
	if hash == "" {
		t.Fatal("HashLowCost returned an empty string")
	}
	if !FromHash(hash).Verify("1:1700000000000000000") {
		t.Error("low-cost hash does not verify against its own input")
	}
}
