package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if len(salt1) != saltSize {
		t.Errorf("salt length = %d, want %d", len(salt1), saltSize)
	}
	salt2, _ := GenerateSalt()
	if bytes.Equal(salt1, salt2) {
		t.Error("two salts should not be equal")
	}
}

func TestDeriveKey(t *testing.T) {
	salt := []byte("1234567890abcdef")

	key1 := DeriveKey("mypassphrase", salt)
	if !bytes.Equal(key1, DeriveKey("mypassphrase", salt)) {
		t.Error("same passphrase and salt should produce the same key")
	}
	if len(key1) != keySize {
		t.Errorf("key length = %d, want %d", len(key1), keySize)
	}
	if bytes.Equal(key1, DeriveKey("other", salt)) {
		t.Error("different passphrases should produce different keys")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	salt, _ := GenerateSalt()
	original := []byte(`{"hubId":"hub_abc123xyz","collections":{}}`)

	sealed, err := Encrypt(original, "correct horse", salt)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !bytes.Equal(sealed[:saltSize], salt) {
		t.Error("archive should start with the salt")
	}
	if bytes.Contains(sealed, original) {
		t.Error("plaintext visible in archive")
	}

	opened, err := Decrypt(sealed, "correct horse")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(opened, original) {
		t.Errorf("round trip = %q", opened)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	salt, _ := GenerateSalt()
	sealed, _ := Encrypt([]byte("secret"), "right", salt)
	if _, err := Decrypt(sealed, "wrong"); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("err = %v, want ErrWrongPassphrase", err)
	}
}

func TestDecryptTruncated(t *testing.T) {
	if _, err := Decrypt([]byte("short"), "x"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("err = %v, want ErrCorrupt", err)
	}
}

func TestDecryptTampered(t *testing.T) {
	salt, _ := GenerateSalt()
	sealed, _ := Encrypt([]byte("secret data"), "pass", salt)
	sealed[len(sealed)-1] ^= 0xff
	if _, err := Decrypt(sealed, "pass"); err == nil {
		t.Error("expected error for tampered archive")
	}
}

func TestEncryptRejectsBadSalt(t *testing.T) {
	if _, err := Encrypt([]byte("x"), "p", []byte("short")); err == nil {
		t.Error("expected error for short salt")
	}
}
