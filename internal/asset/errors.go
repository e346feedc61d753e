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

package asset

// ReadError reports that a source file could not be opened or read. It is
// fatal to the affected asset's pipeline run but recoverable: ingestion can
// simply be retried once the file is available again.
type ReadError struct {
	Path string
	Err  error
}

// NewReadError wraps an underlying filesystem error with the path involved.
func NewReadError(path string, err error) *ReadError {
	return &ReadError{Path: path, Err: err}
}

func (e *ReadError) Error() string {
	return "read error: " + e.Path + ": " + e.Err.Error()
}

func (e *ReadError) Unwrap() error { return e.Err }
