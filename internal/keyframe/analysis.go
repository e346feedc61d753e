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
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	histogramBins = 16
	// analysisWidth/Height is the working resolution for all per-frame
	// analysis. Full-resolution frames are only kept for the saved JPEGs.
	analysisWidth  = 128
	analysisHeight = 72
	dedupSize      = 64
)

// downscaleGray resizes a frame to the given square-ish dimensions and
// returns it as 8-bit grayscale.
func downscaleGray(img image.Image, w, h int) *image.Gray {
	small := imaging.Grayscale(imaging.Resize(img, w, h, imaging.Box))
	gray := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// After Grayscale the R, G and B channels are equal.
			gray.Pix[y*gray.Stride+x] = small.Pix[y*small.Stride+x*4]
		}
	}
	return gray
}

// colorHistogram builds a normalized per-channel histogram at the analysis
// resolution.
func colorHistogram(img image.Image) []float64 {
	small := imaging.Resize(img, analysisWidth, analysisHeight, imaging.Box)
	hist := make([]float64, 3*histogramBins)
	bounds := small.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := small.At(x, y).RGBA()
			hist[bin(r)]++
			hist[histogramBins+bin(g)]++
			hist[2*histogramBins+bin(b)]++
		}
	}
	total := float64(analysisWidth * analysisHeight * 3)
	for i := range hist {
		hist[i] /= total
	}
	return hist
}

func bin(channel uint32) int {
	// RGBA channels are 16-bit.
	b := int(channel >> (16 - 4))
	if b >= histogramBins {
		b = histogramBins - 1
	}
	return b
}

// histogramCorrelation computes the Pearson correlation between two
// histograms. Identical frames score 1.0; a hard scene cut drops well below
// the scene threshold.
func histogramCorrelation(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(len(a))
	meanB /= float64(len(b))

	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		// Flat histograms: treat identical flats as perfectly correlated.
		if varA == varB {
			return 1
		}
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// detectContrastRectangle reports whether the binarized frame contains one
// dominant bright rectangular region covering between minArea and maxArea of
// the frame. This is a cheap stand-in for slide and document content.
func detectContrastRectangle(gray *image.Gray, minArea, maxArea float64) bool {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return false
	}

	// Binarize around the mean luma so exposure changes don't shift the
	// threshold.
	var sum int
	for i := range gray.Pix {
		sum += int(gray.Pix[i])
	}
	threshold := uint8(sum / len(gray.Pix))

	minX, minY := w, h
	maxX, maxY := -1, -1
	bright := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y <= threshold {
				continue
			}
			bright++
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return false
	}

	boxArea := float64((maxX - minX + 1) * (maxY - minY + 1))
	frameArea := float64(w * h)
	areaFrac := boxArea / frameArea
	if areaFrac < minArea || areaFrac > maxArea {
		return false
	}
	// A true rectangle fills its own bounding box; scattered bright
	// speckle does not.
	return float64(bright)/boxArea >= 0.85
}

// motionFraction returns the fraction of pixels whose luma changed by more
// than delta between two equally sized grayscale frames.
func motionFraction(prev, cur *image.Gray, delta uint8) float64 {
	if prev == nil || cur == nil || len(prev.Pix) != len(cur.Pix) || len(cur.Pix) == 0 {
		return 0
	}
	changed := 0
	for i := range cur.Pix {
		d := int(cur.Pix[i]) - int(prev.Pix[i])
		if d < 0 {
			d = -d
		}
		if d > int(delta) {
			changed++
		}
	}
	return float64(changed) / float64(len(cur.Pix))
}

// meanSquaredDiff computes the mean squared pixel difference between two
// frames at the dedup resolution. Values below the dedup threshold mean the
// frames are visually the same shot.
func meanSquaredDiff(a, b image.Image) float64 {
	ga := downscaleGray(a, dedupSize, dedupSize)
	gb := downscaleGray(b, dedupSize, dedupSize)
	var sum float64
	for i := range ga.Pix {
		d := float64(ga.Pix[i]) - float64(gb.Pix[i])
		sum += d * d
	}
	return sum / float64(len(ga.Pix))
}
