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

// Package media wraps the ffmpeg and ffprobe command line tools for the
// handful of operations the pipeline needs: container probing, audio
// extraction for transcription, single-frame decodes for the keyframe
// selector, and clip cutting for the slice cache.
//
// All invocations run under the caller's context so a cancelled pipeline
// run kills any in-flight ffmpeg process.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// Tool locates the ffmpeg and ffprobe executables. Zero-value paths fall
// back to a $PATH lookup.
type Tool struct {
	ffmpegPath  string
	ffprobePath string
}

// NewTool creates a Tool. Empty paths default to "ffmpeg" and "ffprobe".
func NewTool(ffmpegPath, ffprobePath string) *Tool {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Tool{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Probe returns the container duration in seconds.
func (t *Tool) Probe(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: unparseable duration %q", path, stdout.String())
	}
	return duration, nil
}

// ExtractAudio writes the audio track as 16 kHz mono WAV, the format the
// transcription service expects.
func (t *Tool) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vn", "-ac", "1", "-ar", "16000",
		audioPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg audio extract %s: %w: %s", videoPath, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Cut writes the [start, end] range of the video to outPath. The stream is
// copied without re-encoding, so cuts land on the nearest keyframe.
func (t *Tool) Cut(ctx context.Context, videoPath, outPath string, start, end float64) error {
	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", videoPath,
		"-c", "copy",
		outPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg cut %s [%0.2f,%0.2f]: %w: %s",
			videoPath, start, end, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Concat joins clips into one file using the concat demuxer. All clips must
// share codec parameters, which holds for clips cut from the same source.
func (t *Tool) Concat(ctx context.Context, clipPaths []string, outPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("ffmpeg concat: no input clips")
	}
	var list strings.Builder
	for _, p := range clipPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("ffmpeg concat: %w", err)
		}
		fmt.Fprintf(&list, "file '%s'\n", abs)
	}
	listFile, err := os.CreateTemp("", "concat-*.txt")
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	defer os.Remove(listFile.Name())
	if _, err := listFile.WriteString(list.String()); err != nil {
		listFile.Close()
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	listFile.Close()

	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", listFile.Name(),
		"-c", "copy",
		outPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concat: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Frame decodes the single frame nearest to offset seconds.
func (t *Tool) Frame(ctx context.Context, videoPath string, offset float64) (image.Image, error) {
	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-ss", formatSeconds(offset),
		"-i", videoPath,
		"-frames:v", "1",
		"-f", "image2pipe", "-vcodec", "mjpeg",
		"-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame %s @%0.2f: %w: %s",
			videoPath, offset, err, strings.TrimSpace(stderr.String()))
	}
	img, err := imaging.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame %s @%0.2f: decode: %w", videoPath, offset, err)
	}
	return img, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
