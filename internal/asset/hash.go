// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package asset manages physical media assets and their derived caches. This
// file implements the content fingerprint: a streaming SHA-256 digest over a
// file's full byte content. The fingerprint is the canonical identity of an
// asset: two files with identical bytes always produce the same fingerprint
// regardless of filename, which is what guarantees at-most-one pool copy and
// at-most-one cache tree per distinct video.
package asset

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Fingerprint computes the hex-encoded SHA-256 digest of the file at path.
// The file is streamed through the hash in chunks; it is never loaded into
// memory whole. An unopenable or unreadable source yields a *ReadError.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", NewReadError(path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", NewReadError(path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FingerprintBytes computes the fingerprint of an in-memory payload. The
// executor uses it to key its result cache by the content of each job input.
func FingerprintBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
