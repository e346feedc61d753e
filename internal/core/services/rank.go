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

package services

import "strings"

// Tokenize lowercases the input and splits it into bare terms, trimming
// surrounding punctuation so "solder," and "solder" match.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ",.!?;:\"'()[]")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Score counts query term occurrences in the text, normalized by text length
// so short records that are mostly query terms outrank long records with one
// incidental mention. A zero score means no term matched.
func Score(terms []string, text string) float64 {
	words := Tokenize(text)
	if len(words) == 0 {
		return 0
	}
	want := make(map[string]bool, len(terms))
	for _, t := range terms {
		want[t] = true
	}
	hits := 0
	for _, w := range words {
		if want[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(words))
}
