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

package media_test

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videoscribe/videoscribe/internal/keyframe"
	"github.com/videoscribe/videoscribe/internal/media"
)

// makeTestVideo synthesizes a short test pattern clip, or skips the test on
// machines without ffmpeg.
func makeTestVideo(t *testing.T, seconds string) string {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}
	path := filepath.Join(t.TempDir(), "test.mp4")
	cmd := exec.Command("ffmpeg",
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=duration="+seconds+":size=320x240:rate=10",
		"-pix_fmt", "yuv420p",
		path)
	require.NoError(t, cmd.Run())
	return path
}

func TestProbeAndFrame(t *testing.T) {
	path := makeTestVideo(t, "4")
	tool := media.NewTool("", "")

	duration, err := tool.Probe(context.Background(), path)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, duration, 0.5)

	img, err := tool.Frame(context.Background(), path, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
}

func TestOpenVideoUnreadable(t *testing.T) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}
	tool := media.NewTool("", "")

	src, err := media.OpenVideo(context.Background(), tool, filepath.Join(t.TempDir(), "missing.mp4"))
	assert.Nil(t, src)
	assert.ErrorIs(t, err, keyframe.ErrUnreadable)
}

func TestVideoSourceSeekPastEnd(t *testing.T) {
	path := makeTestVideo(t, "2")
	tool := media.NewTool("", "")

	src, err := media.OpenVideo(context.Background(), tool, path)
	require.NoError(t, err)

	_, err = src.Seek(src.Duration() + 10)
	assert.ErrorIs(t, err, keyframe.ErrEOF)
}

func TestCutProducesClip(t *testing.T) {
	path := makeTestVideo(t, "4")
	tool := media.NewTool("", "")
	out := filepath.Join(t.TempDir(), "clip.mp4")

	require.NoError(t, tool.Cut(context.Background(), path, out, 1.0, 3.0))

	duration, err := tool.Probe(context.Background(), out)
	require.NoError(t, err)
	assert.Greater(t, duration, 0.5)
}
