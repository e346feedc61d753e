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

// Package keyframe selects the video timestamps worth sending to the vision
// model. Four candidate passes (scene cuts, high-contrast rectangles, motion
// spikes, coverage fallback) feed one merged, deduplicated, count-bounded
// timeline of saved frame images.
package keyframe

import (
	"errors"
	"image"
)

// FrameSource provides timed random access to decoded video frames. The
// production implementation shells out to ffmpeg; tests supply synthetic
// in-memory sources.
type FrameSource interface {
	// Duration returns the total length of the video in seconds, or zero
	// if the container could not be opened.
	Duration() float64
	// Seek decodes the frame nearest to t seconds. Seeking past the end
	// of the stream returns ErrEOF.
	Seek(t float64) (image.Image, error)
}

// ErrEOF is returned by Seek when no frame exists at the requested time.
var ErrEOF = errors.New("keyframe: no frame at requested time")

// ErrUnreadable indicates the video container itself could not be opened.
// The selector then yields an empty keyframe list rather than aborting the
// whole pipeline run.
var ErrUnreadable = errors.New("keyframe: video is unreadable")
