package signer

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	s := New("test-secret")
	nonce, err := NewNonce()
	if err != nil {
		t.Fatalf("NewNonce failed: %v", err)
	}
	if len(nonce) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(nonce))
	}
	in := Payload{
		Amount: 500,
		One:    1,
		Exp:    time.Now().Unix() + 3600,
		Nonce:  nonce,
		Desc:   "reward",
	}
	tok, err := s.Issue(in)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if !strings.HasPrefix(tok, VersionTag+".") {
		t.Fatalf("token missing version tag: %s", tok)
	}
	out, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v want %+v", out, in)
	}
}

func TestVerifyRejectsTamperedSegments(t *testing.T) {
	s := New("test-secret")
	tok, err := s.Issue(Payload{Amount: 100, One: 1, Exp: time.Now().Unix() + 60, Nonce: "ab", Desc: "d"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	// Flip every byte of the decoded payload and signature in turn;
	// each single-byte mutation must fail verification.
	for seg := 1; seg <= 2; seg++ {
		raw, err := base64.RawURLEncoding.DecodeString(parts[seg])
		if err != nil {
			t.Fatalf("decoding segment %d: %v", seg, err)
		}
		for i := range raw {
			mutated := make([]byte, len(raw))
			copy(mutated, raw)
			mutated[i] ^= 0x01
			forged := make([]string, 3)
			copy(forged, parts)
			forged[seg] = base64.RawURLEncoding.EncodeToString(mutated)
			if _, err := s.Verify(strings.Join(forged, ".")); err == nil {
				t.Fatalf("tampered token accepted (segment %d, byte %d)", seg, i)
			}
		}
	}
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	s := New("test-secret")
	cases := []string{
		"",
		"CM1",
		"CM1.only-two",
		"CM1.a.b.c",
		"CM2.YQ.YQ",
		"CM1.!!!.YQ",
		"CM1.YQ.!!!",
		"not a token at all",
	}
	for _, in := range cases {
		if _, err := s.Verify(in); err == nil {
			t.Errorf("Verify(%q) accepted malformed input", in)
		}
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	a := New("secret-a")
	b := New("secret-b")
	tok, err := a.Issue(Payload{Amount: 100, One: 1, Exp: time.Now().Unix() + 60, Nonce: "n", Desc: ""})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := b.Verify(tok); err == nil {
		t.Error("token signed with a different secret was accepted")
	}
}
