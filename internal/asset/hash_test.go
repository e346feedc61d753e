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

package asset_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/assert"

	"github.com/videoscribe/videoscribe/internal/asset"
)

// TestFingerprintIgnoresFilename verifies the identity invariant: identical
// bytes under different names hash identically, different bytes do not.
func TestFingerprintIgnoresFilename(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp4")
	b := filepath.Join(dir, "b.mov")
	c := filepath.Join(dir, "c.mp4")
	assert.NoError(t, os.WriteFile(a, []byte("same content"), 0o644))
	assert.NoError(t, os.WriteFile(b, []byte("same content"), 0o644))
	assert.NoError(t, os.WriteFile(c, []byte("other content"), 0o644))

	fa, err := asset.Fingerprint(a)
	assert.NoError(t, err)
	fb, err := asset.Fingerprint(b)
	assert.NoError(t, err)
	fc, err := asset.Fingerprint(c)
	assert.NoError(t, err)

	assert.Equal(t, fa, fb)
	assert.That(t, fa != fc)
	assert.Equal(t, 64, len(fa))
}

// TestFingerprintMatchesBytes checks the file and in-memory digests agree,
// since the executor keys its cache with the byte variant.
func TestFingerprintMatchesBytes(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "payload.bin")
	content := []byte("keyframe jpeg bytes")
	assert.NoError(t, os.WriteFile(p, content, 0o644))

	fromFile, err := asset.Fingerprint(p)
	assert.NoError(t, err)
	assert.Equal(t, fromFile, asset.FingerprintBytes(content))
}
