package password

import (
	"errors"
	"testing"

	"dctdm/pkg/dctdmerr"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("the midnight garden has a hidden gate")
	ciphertext, err := Encrypt(plaintext, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, err := Decrypt(ciphertext, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("Decrypt = %q, want %q", got, plaintext)
	}
}

func TestDecryptRejectsWrongPassword(t *testing.T) {
	ciphertext, err := Encrypt([]byte("secret payload"), "right-password")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	_, err = Decrypt(ciphertext, "wrong-password")
	if err == nil {
		t.Fatal("expected error decrypting with the wrong password")
	}
	var kindErr *dctdmerr.Error
	if !errors.As(err, &kindErr) {
		t.Fatalf("expected *dctdmerr.Error, got %T: %v", err, err)
	}
	if kindErr.Kind != dctdmerr.DecryptionFailed {
		t.Fatalf("kind = %v, want %v", kindErr.Kind, dctdmerr.DecryptionFailed)
	}
}

func TestEncryptProducesDistinctCiphertextEachTime(t *testing.T) {
	plaintext := []byte("same message twice")
	c1, err := Encrypt(plaintext, "pw")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	c2, err := Encrypt(plaintext, "pw")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if string(c1) == string(c2) {
		t.Fatal("expected distinct ciphertexts from fresh salt/nonce")
	}
}
