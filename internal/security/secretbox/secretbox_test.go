package secretbox

import (
	"encoding/base64"
	"strings"
	"testing"
)

func testKey() []byte {
	raw := make([]byte, KeyLength)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	return raw
}

func TestSealOpen_RoundTrip(t *testing.T) {
	box, err := New(testKey())
	if err != nil {
		t.Fatalf("New err: %v", err)
	}

	msg := []byte("hola mundo ✓ — secreto")
	aad := []byte("mh_auth_req:/oauth2")

	sealed, err := box.Seal(msg, aad)
	if err != nil {
		t.Fatalf("Seal err: %v", err)
	}
	pt, err := box.Open(sealed, aad)
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	if string(pt) != string(msg) {
		t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
	}
}

func TestOpen_DetectsTamper(t *testing.T) {
	box, _ := New(testKey())
	aad := []byte("ctx")

	sealed, err := box.Seal([]byte("top secret"), aad)
	if err != nil {
		t.Fatalf("Seal err: %v", err)
	}
	parts := strings.Split(sealed, "|")
	if len(parts) != 2 {
		t.Fatalf("unexpected sealed format")
	}
	// corromper un byte del ciphertext (base64 -> bytes -> flip -> base64)
	bs, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatal(err)
	}
	bs[0] ^= 0x01
	corrupted := parts[0] + "|" + base64.RawURLEncoding.EncodeToString(bs)

	if _, err := box.Open(corrupted, aad); err == nil {
		t.Fatalf("expected auth error, got nil")
	}
}

func TestOpen_RejectsWrongAAD(t *testing.T) {
	box, _ := New(testKey())

	sealed, err := box.Seal([]byte("x"), []byte("cookie-a"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := box.Open(sealed, []byte("cookie-b")); err == nil {
		t.Fatalf("blob abierto con aad ajeno")
	}
}

func TestOpen_RejectsGarbage(t *testing.T) {
	box, _ := New(testKey())

	for _, in := range []string{"", "no-sep", "a|b|c", "!!!|###", strings.Repeat("a", 9000) + "|b"} {
		if _, err := box.Open(in, nil); err == nil {
			t.Fatalf("esperaba error para %q", in)
		}
	}
}

func TestNew_RejectsShortKey(t *testing.T) {
	if _, err := New([]byte("short")); err == nil {
		t.Fatalf("esperaba ErrBadKey")
	}
	if _, err := NewFromBase64("not-base64!!"); err == nil {
		t.Fatalf("esperaba error de decode")
	}
}
