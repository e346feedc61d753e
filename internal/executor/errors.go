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

package executor

import "fmt"

// ExternalCallError reports that one job's call to the external service
// failed after exhausting its retry budget. It is scoped to the single job:
// sibling jobs in the same batch are unaffected and the batch itself never
// aborts because of it.
type ExternalCallError struct {
	Attempts int
	Err      error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("external call failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExternalCallError) Unwrap() error { return e.Err }

// CacheCorruptionError reports an unreadable durable cache file. It is never
// fatal: the cache starts empty, which downstream simply observes as misses
// and recomputes.
type CacheCorruptionError struct {
	Path string
	Err  error
}

func (e *CacheCorruptionError) Error() string {
	return fmt.Sprintf("cache file %s unreadable: %v", e.Path, e.Err)
}

func (e *CacheCorruptionError) Unwrap() error { return e.Err }
