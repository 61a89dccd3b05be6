package crypto

import (
	"bytes"
	"testing"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestNewEncryptorWithKey(t *testing.T) {
	t.Run("valid 32-byte key", func(t *testing.T) {
		if _, err := NewEncryptorWithKey(testKey()); err != nil {
			t.Fatalf("NewEncryptorWithKey() error = %v", err)
		}
	})

	t.Run("wrong key length", func(t *testing.T) {
		if _, err := NewEncryptorWithKey([]byte("short")); err == nil {
			t.Error("NewEncryptorWithKey() should reject a short key")
		}
	})
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	enc, err := NewEncryptorWithKey(testKey())
	if err != nil {
		t.Fatalf("NewEncryptorWithKey() error = %v", err)
	}

	plaintext := []byte(`{"device_id":"dev-1","session_token":"tok"}`)
	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Contains(ciphertext, []byte("dev-1")) {
		t.Error("ciphertext leaks plaintext")
	}

	got, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Decrypt() = %q, want %q", got, plaintext)
	}
}

func TestEncrypt_NonceUnique(t *testing.T) {
	enc, _ := NewEncryptorWithKey(testKey())

	a, _ := enc.Encrypt([]byte("same input"))
	b, _ := enc.Encrypt([]byte("same input"))
	if bytes.Equal(a, b) {
		t.Error("two encryptions of the same plaintext produced identical ciphertext")
	}
}

func TestDecrypt_Tampered(t *testing.T) {
	enc, _ := NewEncryptorWithKey(testKey())

	ciphertext, _ := enc.Encrypt([]byte("credentials"))
	ciphertext[len(ciphertext)-1] ^= 0xff

	if _, err := enc.Decrypt(ciphertext); err != ErrInvalidCiphertext {
		t.Errorf("Decrypt(tampered) error = %v, want ErrInvalidCiphertext", err)
	}
}

func TestDecrypt_TooShort(t *testing.T) {
	enc, _ := NewEncryptorWithKey(testKey())

	if _, err := enc.Decrypt([]byte{1, 2, 3}); err != ErrInvalidCiphertext {
		t.Errorf("Decrypt(short) error = %v, want ErrInvalidCiphertext", err)
	}
}

func TestNewEncryptor_MachineKeyStable(t *testing.T) {
	dir := t.TempDir()

	first, err := NewEncryptor(dir)
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v", err)
	}
	ciphertext, err := first.Encrypt([]byte("stable"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	// A second encryptor over the same data dir must reuse the salt.
	second, err := NewEncryptor(dir)
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v", err)
	}
	got, err := second.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if string(got) != "stable" {
		t.Errorf("Decrypt() = %q, want %q", got, "stable")
	}
}
