package streamkit

import "testing"

func TestDeriveKeyIsDeterministicAndFullLength(t *testing.T) {
	k1 := DeriveKey("correct horse battery staple")
	k2 := DeriveKey("correct horse battery staple")
	if len(k1) != 32 {
		t.Fatalf("len(DeriveKey(...)) = %d, want 32", len(k1))
	}
	if string(k1) != string(k2) {
		t.Fatalf("DeriveKey is not deterministic for the same passphrase")
	}
}

func TestDeriveKeyDiffersByPassphrase(t *testing.T) {
	k1 := DeriveKey("passphrase-one")
	k2 := DeriveKey("passphrase-two")
	if string(k1) == string(k2) {
		t.Fatalf("DeriveKey produced identical keys for different passphrases")
	}
}

func TestSelectBlockCryptKnownMethod(t *testing.T) {
	key := DeriveKey("a shared secret")
	block, name := SelectBlockCrypt("aes-128", key)
	if name != "aes-128" {
		t.Fatalf("name = %q, want aes-128", name)
	}
	if block == nil {
		t.Fatalf("expected a non-nil BlockCrypt for aes-128")
	}
}

func TestSelectBlockCryptUnknownFallsBackToAES(t *testing.T) {
	key := DeriveKey("a shared secret")
	block, name := SelectBlockCrypt("not-a-real-cipher", key)
	if name != "aes" {
		t.Fatalf("name = %q, want aes fallback", name)
	}
	if block == nil {
		t.Fatalf("expected a non-nil fallback BlockCrypt")
	}
}

func TestSelectBlockCryptNullMethodReturnsNoCipher(t *testing.T) {
	block, name := SelectBlockCrypt("null", DeriveKey("whatever"))
	if name != "null" {
		t.Fatalf("name = %q, want null", name)
	}
	if block != nil {
		t.Fatalf("expected a nil BlockCrypt for the null method")
	}
}

func TestDefaultKCPOptionsMatchesErasureCodingDefaults(t *testing.T) {
	opts := DefaultKCPOptions()
	if opts.DataShard != 10 || opts.ParityShard != 3 {
		t.Fatalf("got %+v, want DataShard=10 ParityShard=3", opts)
	}
}
