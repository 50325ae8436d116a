// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package text cleans up model output.
package text

import (
	"strings"
)

const fence = "```"

// ExtractCode returns the body of the first fenced code block in s, or s
// trimmed when it has no fence. An unterminated fence runs to the end.
// The language tag on the opening fence line of a multi-line block is dropped.
func ExtractCode(s string) string {
	start := strings.Index(s, fence)
	if start < 0 {
		return strings.TrimSpace(s)
	}

	body := s[start+len(fence):]
	if end := strings.Index(body, fence); end >= 0 && !strings.Contains(body[:end], "\n") {
		// one-line block, no language tag to drop
		return strings.TrimSpace(body[:end])
	}
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}

	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}

	return strings.TrimSpace(body)
}

// IsBlank reports whether s holds only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
