package vault

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	key := []byte("thisis32byteslongsecretkey123456") // 32 bytes for AES-256
	plaintext := "Quality Manual v3"

	ciphertext, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encryption failed: %v", err)
	}

	if ciphertext == plaintext {
		t.Fatal("Ciphertext should not be equal to plaintext")
	}

	decrypted, err := Decrypt(ciphertext, key)
	if err != nil {
		t.Fatalf("Decryption failed: %v", err)
	}

	if decrypted != plaintext {
		t.Errorf("Expected %s, got %s", plaintext, decrypted)
	}
}

func TestSealOpen(t *testing.T) {
	key := DeriveKey("correct horse battery staple", []byte("fixed-test-salt"))
	payload := []byte(`{"doc-1":{"title":"ISO 27001 Policy"}}`)

	sealed, err := Seal(payload, key)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if bytes.Contains(sealed, []byte("ISO 27001")) {
		t.Fatal("sealed bytes leak plaintext")
	}

	opened, err := Open(sealed, key)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(opened, payload) {
		t.Errorf("Expected %s, got %s", payload, opened)
	}
}

func TestDeriveKey(t *testing.T) {
	salt := bytes.Repeat([]byte{7}, SaltSize)
	got := DeriveKey("passphrase", salt)
	if len(got) != KeySize {
		t.Fatalf("expected %d byte key, got %d", KeySize, len(got))
	}
	if !bytes.Equal(got, DeriveKey("passphrase", salt)) {
		t.Error("derivation should be deterministic for the same salt")
	}
	if bytes.Equal(got, DeriveKey("passphrase", bytes.Repeat([]byte{8}, SaltSize))) {
		t.Error("different salts should yield different keys")
	}

	hexKey := "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	got = DeriveKey(hexKey, salt)
	if got[0] != 0x00 || got[31] != 0x1f {
		t.Errorf("hex key should be decoded verbatim, got %x", got)
	}
}

func TestLoadOrCreateSalt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "key.salt")
	first, err := LoadOrCreateSalt(path)
	if err != nil {
		t.Fatalf("create salt: %v", err)
	}
	if len(first) != SaltSize {
		t.Fatalf("expected %d byte salt, got %d", SaltSize, len(first))
	}
	second, err := LoadOrCreateSalt(path)
	if err != nil {
		t.Fatalf("reload salt: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("salt should be stable across loads")
	}

	if err := os.WriteFile(path, []byte("short"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrCreateSalt(path); err == nil {
		t.Error("expected error for corrupt salt")
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	key1 := []byte("thisis32byteslongsecretkey123456")
	key2 := []byte("another32byteslongsecretkey65432")

	ciphertext, err := Encrypt("Secret message", key1)
	if err != nil {
		t.Fatalf("Encryption failed: %v", err)
	}

	_, err = Decrypt(ciphertext, key2)
	if !errors.Is(err, ErrTampered) {
		t.Fatalf("expected ErrTampered, got %v", err)
	}
}

func TestInvalidKeySize(t *testing.T) {
	invalidKey := []byte("shortkey")

	if _, err := Encrypt("test", invalidKey); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("Encryption should fail with invalid key size, got %v", err)
	}

	if _, err := Decrypt("0123456789abcdef", invalidKey); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("Decryption should fail with invalid key size, got %v", err)
	}
}

func TestGenerateSelfSignedCert(t *testing.T) {
	cert, err := GenerateSelfSignedCert("complyx.local")
	if err != nil {
		t.Fatalf("Failed to generate self-signed cert: %v", err)
	}

	if len(cert.Certificate) == 0 {
		t.Fatal("Generated certificate is empty")
	}

	if cert.PrivateKey == nil {
		t.Fatal("Generated private key is nil")
	}
}

func TestDecryptMalformedHex(t *testing.T) {
	key := []byte("thisis32byteslongsecretkey123456")
	if _, err := Decrypt("not-hex", key); err == nil {
		t.Fatal("Decryption should fail with malformed hex")
	}
}

func TestDecryptTooShort(t *testing.T) {
	key := []byte("thisis32byteslongsecretkey123456")
	// AES-GCM nonce is 12 bytes, so 3 bytes is too short.
	if _, err := Decrypt("abcdef", key); err == nil {
		t.Fatal("Decryption should fail with too short ciphertext")
	}
}
