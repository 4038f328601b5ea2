// Package sidecar persists the one bit of metadata a stego file cannot
// carry on its own: whether its embedded payload is password-encrypted.
// Extraction needs this before it can decide whether to ask for a
// password, so it is written as a small file alongside the stego JPEG
// rather than folded into the bitstream itself.
package sidecar

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"dctdm/pkg/dctdmerr"
)

// Suffix replaces the stego file's extension to name its sidecar.
const Suffix = ".meta"

// Record is the sidecar's entire contents.
type Record struct {
	Encrypted bool `json:"encrypted"`
}

// PathFor returns the sidecar path for a given stego file path: the same
// basename with its extension replaced by Suffix.
func PathFor(stegoPath string) string {
	return strings.TrimSuffix(stegoPath, filepath.Ext(stegoPath)) + Suffix
}

// Write saves rec alongside stegoPath.
func Write(stegoPath string, rec Record) error {
	const op = "sidecar.Write"
	data, err := json.Marshal(rec)
	if err != nil {
		return dctdmerr.New(dctdmerr.IOError, op, err)
	}
	if err := os.WriteFile(PathFor(stegoPath), data, 0o644); err != nil {
		return dctdmerr.New(dctdmerr.IOError, op, err)
	}
	return nil
}

// Read loads the sidecar for stegoPath. A missing sidecar is not an error:
// it is treated as Record{Encrypted: false}, since a cover produced without
// this tool has no encryption metadata to report.
func Read(stegoPath string) (Record, error) {
	const op = "sidecar.Read"
	data, err := os.ReadFile(PathFor(stegoPath))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, nil
		}
		return Record{}, dctdmerr.New(dctdmerr.IOError, op, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, dctdmerr.New(dctdmerr.MalformedStream, op, err)
	}
	return rec, nil
}
