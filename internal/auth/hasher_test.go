package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_BcryptRoundTrip(t *testing.T) {
	h := Hasher{Cost: bcrypt.MinCost}
	cred, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h.NeedsUpgrade(cred) {
		t.Fatalf("bcrypt credential should not need upgrade")
	}
	ok, err := h.Verify(cred, "s3cret")
	if err != nil || !ok {
		t.Fatalf("expected match, got %v %v", ok, err)
	}
	ok, err = h.Verify(cred, "wrong")
	if err != nil || ok {
		t.Fatalf("expected mismatch, got %v %v", ok, err)
	}
}

func TestLegacyRollingHash(t *testing.T) {
	cases := map[string]string{
		"":        "0",
		"a":       "97",
		"abc":     "96354",
		"hello":   "99162322",
		"officer": "-1548707530",
	}
	for in, want := range cases {
		if got := LegacyRollingHash(in); got != want {
			t.Fatalf("LegacyRollingHash(%q)=%s want %s", in, got, want)
		}
	}
}

func TestHasher_LegacySchemes(t *testing.T) {
	h := Hasher{Cost: bcrypt.MinCost}

	rolling := SchemeLegacyRolling + ":" + LegacyRollingHash("abc")
	if ok, _ := h.Verify(rolling, "abc"); !ok {
		t.Fatalf("rolling credential should verify")
	}
	if ok, _ := h.Verify(rolling, "abd"); ok {
		t.Fatalf("rolling credential should not verify another password")
	}
	if !h.NeedsUpgrade(rolling) {
		t.Fatalf("legacy credential should need upgrade")
	}

	digest := SchemeLegacySHA256 + ":BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD"
	if ok, _ := h.Verify(digest, "abc"); !ok {
		t.Fatalf("sha256 credential should verify case-insensitively")
	}

	numeric := SchemeLegacyNumeric + ":96354"
	for _, pw := range []string{"abc", "96354"} {
		if ok, _ := h.Verify(numeric, pw); !ok {
			t.Fatalf("numeric credential should verify %q", pw)
		}
	}
	if ok, _ := h.Verify(numeric, "96355"); ok {
		t.Fatalf("numeric credential should not verify another password")
	}

	if _, err := h.Verify("plain", "plain"); err == nil {
		t.Fatalf("expected unknown scheme error")
	}
}
