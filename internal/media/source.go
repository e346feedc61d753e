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

package media

import (
	"context"
	"fmt"
	"image"

	"github.com/videoscribe/videoscribe/internal/keyframe"
)

// VideoSource adapts a video file on disk to the keyframe selector's frame
// access interface. Each Seek shells out for a single frame decode; the
// selector's sampling rates keep the process count modest.
type VideoSource struct {
	ctx      context.Context
	tool     *Tool
	path     string
	duration float64
}

var _ keyframe.FrameSource = (*VideoSource)(nil)

// OpenVideo probes the container and returns a frame source bound to ctx.
// An unreadable container surfaces keyframe.ErrUnreadable so the selector
// degrades to an empty result instead of failing the pipeline.
func OpenVideo(ctx context.Context, tool *Tool, path string) (*VideoSource, error) {
	duration, err := tool.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", keyframe.ErrUnreadable, path, err)
	}
	return &VideoSource{ctx: ctx, tool: tool, path: path, duration: duration}, nil
}

func (v *VideoSource) Duration() float64 { return v.duration }

func (v *VideoSource) Seek(t float64) (image.Image, error) {
	if t >= v.duration {
		return nil, keyframe.ErrEOF
	}
	return v.tool.Frame(v.ctx, v.path, t)
}
