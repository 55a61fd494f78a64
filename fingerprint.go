// fingerprint.go: Content fingerprinting for Warden
//
// One digest width is used everywhere: SHA-256 rendered as 64 lowercase
// hex characters, for both the stored administration credential and the
// audit-time fingerprint of an offending executable.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/agilira/go-errors"
)

// FingerprintUnavailable is recorded in an audit record when the
// responsible executable could not be read at log time. The executing
// file may legitimately have changed or vanished between the decision
// and the fingerprint read; the record is kept, not discarded.
const FingerprintUnavailable = "unavailable"

// Digest returns the SHA-256 digest of data as 64 lowercase hex characters.
// Deterministic: the same input always produces the same output.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestFile returns the SHA-256 digest of the file's content as 64
// lowercase hex characters. The file is streamed, not loaded whole.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- fingerprinting arbitrary executables is the point
	if err != nil {
		return "", errors.Wrap(err, ErrCodeFingerprintFailure, "cannot open file for fingerprinting").
			WithContext("path", path)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(err, ErrCodeFingerprintFailure, "cannot read file for fingerprinting").
			WithContext("path", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
