package dctdm

import (
	"encoding/base64"
	"fmt"

	"dctdm/pkg/dctdmerr"
	"dctdm/pkg/jpegcodec"
	"dctdm/pkg/password"
	"dctdm/pkg/sidecar"
)

// EmbedResult is the outcome of a full embed pass: the stego bytes and the
// sidecar record that must be written alongside them.
type EmbedResult struct {
	JPEG    []byte
	Sidecar sidecar.Record
}

// EmbedMessage decodes cover, embeds message under opts, and re-encodes
// the result, applying the password layer first when opts.Password is set.
func EmbedMessage(cover []byte, message string, opts Options) (EmbedResult, error) {
	const op = "dctdm.EmbedMessage"

	store, err := jpegcodec.Decode(cover)
	if err != nil {
		return EmbedResult{}, err
	}

	payload := message
	encrypted := opts.Password != ""
	if encrypted {
		ciphertext, err := password.Encrypt([]byte(message), opts.Password)
		if err != nil {
			return EmbedResult{}, err
		}
		payload = base64.StdEncoding.EncodeToString(ciphertext)
	}

	if err := embedFramed(store, payload, opts); err != nil {
		return EmbedResult{}, err
	}

	stego, err := jpegcodec.Encode(store)
	if err != nil {
		return EmbedResult{}, dctdmerr.New(dctdmerr.IOError, op, fmt.Errorf("re-encoding stego image: %w", err))
	}

	return EmbedResult{JPEG: stego, Sidecar: sidecar.Record{Encrypted: encrypted}}, nil
}

// ExtractMessage decodes stego, extracts the framed payload under opts,
// and reverses the password layer if rec says the payload is encrypted.
// If rec.Encrypted is true and opts.Password is empty, it fails with
// dctdmerr.PasswordRequired before attempting decryption.
func ExtractMessage(stego []byte, rec sidecar.Record, opts Options) (string, error) {
	const op = "dctdm.ExtractMessage"

	store, err := jpegcodec.Decode(stego)
	if err != nil {
		return "", err
	}

	payload, err := extractFramed(store, opts)
	if err != nil {
		return "", err
	}

	if !rec.Encrypted {
		return payload, nil
	}
	if opts.Password == "" {
		return "", dctdmerr.New(dctdmerr.PasswordRequired, op, fmt.Errorf("payload is encrypted, no password given"))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", dctdmerr.New(dctdmerr.DecryptionFailed, op, fmt.Errorf("payload is not valid base64: %w", err))
	}
	plaintext, err := password.Decrypt(ciphertext, opts.Password)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
