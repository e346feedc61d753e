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

package model

import (
	"sort"
	"strings"
)

// DefaultGapThreshold is the silence length, in seconds, above which the
// merger looks for visual activity to report as a silent_action record.
const DefaultGapThreshold = 3.0

// Fuse merges the speech and visual streams into one ordered timeline.
//
// Logic Flow:
//  1. Both streams are sorted by start time.
//  2. The speech stream is walked in order while tracking the end of the
//     previous speech segment.
//  3. When the silence before a speech segment exceeds gapThreshold and
//     visual segments started inside that silence, a silent_action record
//     spanning the gap is emitted with their concatenated descriptions.
//  4. Each speech segment then becomes a speech record carrying every
//     visual segment that starts within [start, end] inclusive.
//  5. Record ids are assigned sequentially from 1 in emission order.
//
// A visual segment whose start precedes all speech without triggering the
// gap check, or follows the final speech segment, is never emitted. A visual
// segment starting exactly where one speech segment ends and the next begins
// is attached to both records; callers expecting exactly-once visual
// coverage must not rely on this merger for it.
func Fuse(speech []*SpeechSegment, visual []*VisualSegment, gapThreshold float64) []*FusedRecord {
	if gapThreshold <= 0 {
		gapThreshold = DefaultGapThreshold
	}
	speech = sortedSpeech(speech)
	visual = sortedVisual(visual)

	var records []*FusedRecord
	lastSpeechEnd := 0.0
	for _, seg := range speech {
		if seg.Start-lastSpeechEnd > gapThreshold {
			if ctx := visualContext(visual, lastSpeechEnd, seg.Start, false); ctx != "" {
				records = append(records, &FusedRecord{
					ID:            len(records) + 1,
					TimeRange:     [2]float64{lastSpeechEnd, seg.Start},
					Type:          RecordTypeSilentAction,
					VisualContext: ctx,
				})
			}
		}
		records = append(records, &FusedRecord{
			ID:            len(records) + 1,
			TimeRange:     [2]float64{seg.Start, seg.End},
			Type:          RecordTypeSpeech,
			Content:       seg.Text,
			VisualContext: visualContext(visual, seg.Start, seg.End, true),
		})
		lastSpeechEnd = seg.End
	}
	return records
}

// visualContext concatenates the descriptions of every visual segment whose
// start falls in the window. The end bound is inclusive for speech windows
// and exclusive for gap windows.
func visualContext(visual []*VisualSegment, from, to float64, inclusiveEnd bool) string {
	var parts []string
	for _, v := range visual {
		if v.Start < from {
			continue
		}
		if v.Start > to || (!inclusiveEnd && v.Start == to) {
			continue
		}
		if d := strings.TrimSpace(v.Description); d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, " ")
}

func sortedSpeech(in []*SpeechSegment) []*SpeechSegment {
	out := make([]*SpeechSegment, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func sortedVisual(in []*VisualSegment) []*VisualSegment {
	out := make([]*VisualSegment, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
