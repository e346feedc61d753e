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

package keyframe

import (
	"context"
	"image"
	"image/color"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	duration float64
	frameAt  func(t float64) (image.Image, error)
}

func (s *stubSource) Duration() float64 { return s.duration }

func (s *stubSource) Seek(t float64) (image.Image, error) { return s.frameAt(t) }

func solidFrame(c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 160, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 160; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestSelectCoversStaticVideo(t *testing.T) {
	// A fully static video produces no scene cuts, no rectangles and no
	// motion; the coverage pass alone must still bound every stretch.
	frame := solidFrame(color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	src := &stubSource{
		duration: 100,
		frameAt:  func(float64) (image.Image, error) { return frame, nil },
	}
	sel := NewSelector(DefaultConfig())

	kfs, err := sel.Select(context.Background(), src, t.TempDir())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(kfs), int(math.Ceil(100.0/30.0)))

	prev := 0.0
	for _, kf := range kfs {
		assert.LessOrEqual(t, kf.Time-prev, 30.0)
		assert.GreaterOrEqual(t, kf.Time, prev)
		prev = kf.Time
		info, err := os.Stat(kf.Path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
	assert.LessOrEqual(t, 100.0-prev, 30.0)
}

func TestSelectUnreadableVideo(t *testing.T) {
	src := &stubSource{duration: 0}
	sel := NewSelector(DefaultConfig())

	kfs, err := sel.Select(context.Background(), src, t.TempDir())
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.Empty(t, kfs)
}

func TestSelectSkipsFailedFrames(t *testing.T) {
	frame := solidFrame(color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	src := &stubSource{
		duration: 100,
		frameAt: func(t float64) (image.Image, error) {
			if t > 60 {
				return nil, ErrEOF
			}
			return frame, nil
		},
	}
	sel := NewSelector(DefaultConfig())

	kfs, err := sel.Select(context.Background(), src, t.TempDir())
	require.NoError(t, err)
	assert.NotEmpty(t, kfs)
	for _, kf := range kfs {
		assert.LessOrEqual(t, kf.Time, 60.0)
	}
}

func TestDedupeEpsilonFirstWins(t *testing.T) {
	got := dedupeEpsilon([]float64{10, 10.3, 10.6, 12}, 0.75)
	assert.Equal(t, []float64{10, 12}, got)
}

func TestCoverageFillSubdividesOversizedGaps(t *testing.T) {
	got := coverageFill(nil, 100, 30)
	assert.Equal(t, []float64{12.5, 37.5, 62.5, 87.5}, got)

	// A fully covered timeline needs no fill.
	assert.Empty(t, coverageFill([]float64{25, 50, 75}, 100, 30))
}

func TestHistogramCorrelationSeparatesSceneCuts(t *testing.T) {
	red := colorHistogram(solidFrame(color.NRGBA{R: 220, A: 255}))
	blue := colorHistogram(solidFrame(color.NRGBA{B: 220, A: 255}))

	assert.InDelta(t, 1.0, histogramCorrelation(red, red), 1e-9)
	assert.Less(t, histogramCorrelation(red, blue), 0.6)
}

func TestDetectContrastRectangle(t *testing.T) {
	makeGray := func(rect image.Rectangle) *image.Gray {
		g := image.NewGray(image.Rect(0, 0, 128, 72))
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				g.SetGray(x, y, color.Gray{Y: 240})
			}
		}
		return g
	}

	// Half the frame: a plausible slide.
	assert.True(t, detectContrastRectangle(makeGray(image.Rect(10, 10, 110, 50)), 0.20, 0.95))
	// A sliver is not.
	assert.False(t, detectContrastRectangle(makeGray(image.Rect(0, 0, 12, 12)), 0.20, 0.95))
	// A flat frame has no contrast at all.
	assert.False(t, detectContrastRectangle(image.NewGray(image.Rect(0, 0, 128, 72)), 0.20, 0.95))
}

func TestMotionFraction(t *testing.T) {
	dark := image.NewGray(image.Rect(0, 0, 64, 64))
	light := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range light.Pix {
		light.Pix[i] = 200
	}

	assert.Equal(t, 1.0, motionFraction(dark, light, 25))
	assert.Equal(t, 0.0, motionFraction(dark, dark, 25))
}
