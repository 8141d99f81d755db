// Copyright 2025 The Armature Authors
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

package cache

import (
	"sort"
	"strings"
)

// KeyInput carries the per-request facts a cache key may depend on. The
// derived key is a pure function of this struct: identical inputs always
// produce identical keys.
type KeyInput struct {
	Method       string
	PathTemplate string
	PathParams   map[string]string

	// Query is folded in, sorted by key, only when IncludeQuery is set.
	Query        map[string]string
	IncludeQuery bool

	// VaryHeaders appends name=value pairs for the listed headers, in
	// list order, resolved through Header.
	VaryHeaders []string
	Header      func(name string) string
}

// BuildKey derives a colon-joined deterministic cache key. Path
// parameters and (when included) query values are folded in sorted by
// name so map iteration order never leaks into the key.
func BuildKey(in KeyInput) string {
	parts := []string{in.Method, in.PathTemplate}

	for _, name := range sortedKeys(in.PathParams) {
		parts = append(parts, name+"="+in.PathParams[name])
	}

	if in.IncludeQuery {
		for _, name := range sortedKeys(in.Query) {
			parts = append(parts, "q."+name+"="+in.Query[name])
		}
	}

	for _, name := range in.VaryHeaders {
		value := ""
		if in.Header != nil {
			value = in.Header(name)
		}
		parts = append(parts, "h."+name+"="+value)
	}

	return strings.Join(parts, ":")
}

// Substitute replaces `{name}` and `:name` placeholders in a template
// with path-parameter values. Used for explicit key templates and for
// invalidation patterns. Unknown placeholders substitute to the empty
// string.
func Substitute(template string, params map[string]string) string {
	var out strings.Builder

	i := 0
	for i < len(template) {
		switch template[i] {
		case '{':
			closing := strings.IndexByte(template[i:], '}')
			if closing < 0 {
				out.WriteString(template[i:])

				return out.String()
			}
			out.WriteString(params[template[i+1:i+closing]])
			i += closing + 1

		case ':':
			end := i + 1
			for end < len(template) && isNameByte(template[end]) {
				end++
			}
			if end == i+1 {
				out.WriteByte(':')
				i++

				continue
			}
			out.WriteString(params[template[i+1:end]])
			i = end

		default:
			out.WriteByte(template[i])
			i++
		}
	}

	return out.String()
}

func isNameByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
