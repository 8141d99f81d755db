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

package compiler

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentPattern matches exactly one path segment. Placeholders never
// cross a `/` boundary.
const segmentPattern = `[^/]+`

var placeholderName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PathMatcher is a precompiled path template. Both placeholder syntaxes,
// `{name}` and `:name`, compile to the same named single-segment capture,
// and the whole pattern is anchored to a full-string match.
type PathMatcher struct {
	template string
	pattern  *regexp.Regexp
	names    []string // capture names in template order
}

// compilePath turns a path template into an anchored matcher. All literal
// text is regexp-escaped, so templates may safely contain metacharacters.
func compilePath(template string) (*PathMatcher, error) {
	if template == "" || !strings.HasPrefix(template, "/") {
		return nil, fmt.Errorf("path template %q must begin with /", template)
	}

	var (
		pattern strings.Builder
		names   []string
	)
	pattern.WriteByte('^')

	i := 0
	for i < len(template) {
		switch template[i] {
		case '{':
			closing := strings.IndexByte(template[i:], '}')
			if closing < 0 {
				return nil, fmt.Errorf("path template %q has an unterminated placeholder", template)
			}
			name := template[i+1 : i+closing]
			if !placeholderName.MatchString(name) {
				return nil, fmt.Errorf("path template %q has invalid placeholder name %q", template, name)
			}
			fmt.Fprintf(&pattern, "(?P<%s>%s)", name, segmentPattern)
			names = append(names, name)
			i += closing + 1

		case ':':
			end := i + 1
			for end < len(template) && template[end] != '/' {
				end++
			}
			name := template[i+1 : end]
			if !placeholderName.MatchString(name) {
				return nil, fmt.Errorf("path template %q has invalid placeholder name %q", template, name)
			}
			fmt.Fprintf(&pattern, "(?P<%s>%s)", name, segmentPattern)
			names = append(names, name)
			i = end

		default:
			end := strings.IndexAny(template[i:], "{:")
			if end < 0 {
				end = len(template) - i
			}
			pattern.WriteString(regexp.QuoteMeta(template[i : i+end]))
			i += end
		}
	}
	pattern.WriteByte('$')

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil, fmt.Errorf("compile path template %q: %w", template, err)
	}

	return &PathMatcher{template: template, pattern: re, names: names}, nil
}

// Template returns the original path template.
func (m *PathMatcher) Template() string {
	return m.template
}

// Names returns the placeholder names in template order.
func (m *PathMatcher) Names() []string {
	return append([]string(nil), m.names...)
}

// Match tests a concrete request path against the template and returns
// the captured path parameters. The second return is false when the path
// does not match.
func (m *PathMatcher) Match(path string) (map[string]string, bool) {
	sub := m.pattern.FindStringSubmatch(path)
	if sub == nil {
		return nil, false
	}

	params := make(map[string]string, len(m.names))
	for i, name := range m.pattern.SubexpNames() {
		if name != "" && i < len(sub) {
			params[name] = sub[i]
		}
	}

	return params, true
}
