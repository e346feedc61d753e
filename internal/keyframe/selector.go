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
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/videoscribe/videoscribe/internal/core/model"
)

// Config tunes the candidate passes and the dedup/bounding behavior.
type Config struct {
	// SceneStride is the sampling interval (seconds) for the scene pass.
	SceneStride float64
	// SceneCorrelation is the histogram correlation floor; a drop below
	// it between consecutive samples starts a new scene.
	SceneCorrelation float64
	// LongScene is the scene length (seconds) above which the 1/3 and
	// 2/3 points are emitted alongside the midpoint.
	LongScene float64

	// FineStride is the sampling interval for the rectangle and motion
	// passes.
	FineStride float64
	// RectMinArea and RectMaxArea bound the accepted rectangle size as a
	// fraction of frame area.
	RectMinArea float64
	RectMaxArea float64
	// MotionDelta is the per-pixel luma change that counts as motion.
	MotionDelta uint8
	// MotionFraction is the changed-pixel fraction that makes a sample a
	// motion candidate.
	MotionFraction float64
	// MotionCooldown suppresses further motion candidates for this many
	// seconds after one is taken.
	MotionCooldown float64

	// MaxGap is the longest stretch (seconds) the coverage fallback will
	// leave without a keyframe.
	MaxGap float64
	// Epsilon is the time window within which a later candidate is
	// considered a duplicate of an earlier one.
	Epsilon float64
	// DedupMSE drops a candidate whose downscaled grayscale mean squared
	// difference against the previously accepted frame falls below it.
	// Zero disables perceptual dedup.
	DedupMSE float64
	// MaxKeyframes caps the final count; excess frames are thinned
	// evenly across the timeline.
	MaxKeyframes int
}

// DefaultConfig returns the tuning used by the production pipeline.
func DefaultConfig() Config {
	return Config{
		SceneStride:      2.0,
		SceneCorrelation: 0.6,
		LongScene:        30.0,
		FineStride:       1.0,
		RectMinArea:      0.20,
		RectMaxArea:      0.95,
		MotionDelta:      25,
		MotionFraction:   0.30,
		MotionCooldown:   5.0,
		MaxGap:           30.0,
		Epsilon:          0.75,
		DedupMSE:         50.0,
		MaxKeyframes:     120,
	}
}

// Selector extracts the described-worthy timestamps of a video.
type Selector struct {
	cfg Config
}

func NewSelector(cfg Config) *Selector {
	if cfg.SceneStride <= 0 {
		cfg.SceneStride = DefaultConfig().SceneStride
	}
	if cfg.FineStride <= 0 {
		cfg.FineStride = DefaultConfig().FineStride
	}
	if cfg.MaxGap <= 0 {
		cfg.MaxGap = DefaultConfig().MaxGap
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultConfig().Epsilon
	}
	if cfg.MaxKeyframes <= 0 {
		cfg.MaxKeyframes = DefaultConfig().MaxKeyframes
	}
	return &Selector{cfg: cfg}
}

// accepted is a timestamp that survived dedup, with its decoded frame held
// for the save step.
type accepted struct {
	time  float64
	frame image.Image
}

// Select runs all four passes over src and writes one JPEG per accepted
// keyframe into outDir. The returned slice is ordered by time. An unreadable
// video yields an empty slice and ErrUnreadable; individual frame failures
// are skipped.
func (s *Selector) Select(ctx context.Context, src FrameSource, outDir string) ([]model.Keyframe, error) {
	duration := src.Duration()
	if duration <= 0 {
		return nil, ErrUnreadable
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("keyframe output dir: %w", err)
	}

	candidates := s.sceneCandidates(ctx, src, duration)
	rect, motion := s.fineCandidates(ctx, src, duration)
	candidates = append(candidates, rect...)
	candidates = append(candidates, motion...)
	sort.Float64s(candidates)
	candidates = dedupeEpsilon(candidates, s.cfg.Epsilon)

	// Decode the survivors. Perceptual dedup runs here, before the
	// coverage pass, so fallback frames inserted below are never dropped
	// and the max-gap guarantee holds even for a static video.
	var kept []accepted
	skipped := 0
	for _, t := range candidates {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		img, err := src.Seek(t)
		if err != nil {
			skipped++
			continue
		}
		if s.cfg.DedupMSE > 0 && len(kept) > 0 {
			if meanSquaredDiff(kept[len(kept)-1].frame, img) < s.cfg.DedupMSE {
				continue
			}
		}
		kept = append(kept, accepted{time: t, frame: img})
	}

	keptTimes := make([]float64, len(kept))
	for i, k := range kept {
		keptTimes[i] = k.time
	}
	for _, t := range coverageFill(keptTimes, duration, s.cfg.MaxGap) {
		img, err := src.Seek(t)
		if err != nil {
			skipped++
			continue
		}
		kept = append(kept, accepted{time: t, frame: img})
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].time < kept[j].time })

	if len(kept) > s.cfg.MaxKeyframes {
		kept = thinEvenly(kept, s.cfg.MaxKeyframes)
	}
	if skipped > 0 {
		slog.Warn("keyframe extraction skipped frames", "skipped", skipped)
	}

	keyframes := make([]model.Keyframe, 0, len(kept))
	for _, k := range kept {
		path := filepath.Join(outDir, fmt.Sprintf("kf_%08d.jpg", int(math.Round(k.time*100))))
		if err := imaging.Save(k.frame, path, imaging.JPEGQuality(85)); err != nil {
			slog.Warn("keyframe save failed", "time", k.time, "error", err)
			continue
		}
		keyframes = append(keyframes, model.Keyframe{Time: k.time, Path: path})
	}
	return keyframes, nil
}

// sceneCandidates samples the video at the coarse stride and splits it into
// scenes wherever the histogram correlation between consecutive samples
// drops below the scene floor. Each scene contributes its midpoint, long
// scenes additionally their 1/3 and 2/3 points.
func (s *Selector) sceneCandidates(ctx context.Context, src FrameSource, duration float64) []float64 {
	var boundaries []float64
	var prev []float64
	for t := 0.0; t < duration; t += s.cfg.SceneStride {
		if ctx.Err() != nil {
			return nil
		}
		img, err := src.Seek(t)
		if err != nil {
			continue
		}
		hist := colorHistogram(img)
		if prev != nil && histogramCorrelation(prev, hist) < s.cfg.SceneCorrelation {
			boundaries = append(boundaries, t)
		}
		prev = hist
	}

	var out []float64
	start := 0.0
	emit := func(a, b float64) {
		out = append(out, a+(b-a)/2)
		if b-a > s.cfg.LongScene {
			out = append(out, a+(b-a)/3, a+2*(b-a)/3)
		}
	}
	for _, b := range boundaries {
		emit(start, b)
		start = b
	}
	emit(start, duration)
	return out
}

// fineCandidates runs the rectangle and motion detectors over one shared
// fine-grained sampling of the video.
func (s *Selector) fineCandidates(ctx context.Context, src FrameSource, duration float64) (rect, motion []float64) {
	var prevGray *image.Gray
	lastMotion := math.Inf(-1)
	for t := 0.0; t < duration; t += s.cfg.FineStride {
		if ctx.Err() != nil {
			return rect, motion
		}
		img, err := src.Seek(t)
		if err != nil {
			continue
		}
		gray := downscaleGray(img, analysisWidth, analysisHeight)

		if detectContrastRectangle(gray, s.cfg.RectMinArea, s.cfg.RectMaxArea) {
			rect = append(rect, t)
		}
		if prevGray != nil &&
			motionFraction(prevGray, gray, s.cfg.MotionDelta) > s.cfg.MotionFraction &&
			t-lastMotion > s.cfg.MotionCooldown {
			motion = append(motion, t)
			lastMotion = t
		}
		prevGray = gray
	}
	return rect, motion
}

// dedupeEpsilon collapses sorted timestamps closer than eps to one another.
// The earliest of each cluster wins.
func dedupeEpsilon(sorted []float64, eps float64) []float64 {
	var out []float64
	for _, t := range sorted {
		if len(out) > 0 && t-out[len(out)-1] < eps {
			continue
		}
		out = append(out, t)
	}
	return out
}

// coverageFill returns the fallback timestamps needed so that no stretch of
// the timeline, including the lead-in and tail, is longer than maxGap
// without a keyframe. Each oversized stretch is divided into equal cells
// with one fallback at every cell midpoint.
func coverageFill(sorted []float64, duration, maxGap float64) []float64 {
	edges := make([]float64, 0, len(sorted)+2)
	edges = append(edges, 0)
	edges = append(edges, sorted...)
	edges = append(edges, duration)

	var fill []float64
	for i := 0; i+1 < len(edges); i++ {
		a, b := edges[i], edges[i+1]
		length := b - a
		if length <= maxGap {
			continue
		}
		n := int(math.Ceil(length / maxGap))
		for k := 0; k < n; k++ {
			fill = append(fill, a+(float64(k)+0.5)*length/float64(n))
		}
	}
	return fill
}

// thinEvenly keeps max entries spread across the whole timeline.
func thinEvenly(kept []accepted, max int) []accepted {
	out := make([]accepted, 0, max)
	for i := 0; i < max; i++ {
		out = append(out, kept[i*len(kept)/max])
	}
	return out
}
