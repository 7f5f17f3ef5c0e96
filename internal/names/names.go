// Copyright 2025 The Deployd Authors
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

// Package names derives deterministic, DNS-1123-safe resource names from
// free-form application identity.
package names

import (
	"regexp"
	"strings"
)

const (
	separator = "-"

	// prefix guarantees the derived name starts with a letter, suffix
	// guarantees it does not end with the separator.
	prefix = "r"
	suffix = "9"
)

var invalidRuns = regexp.MustCompile(`[^a-z0-9-]+`)

// Derive joins the given identity parts into a single name that satisfies
// Kubernetes DNS label rules. The function is pure: the same parts always
// produce the same name. Distinct inputs that normalize to the same string
// are not disambiguated.
func Derive(parts ...string) string {
	joined := strings.ToLower(strings.Join(parts, separator))
	cleaned := invalidRuns.ReplaceAllString(joined, separator)
	return prefix + cleaned + suffix
}
