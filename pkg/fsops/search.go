// Copyright 2025 EGDesk Authors.
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

package fsops

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// searchMaxDepth bounds the recursive descent below the base path.
	searchMaxDepth = 10

	// defaultMaxResults caps the result list when the caller passes none.
	defaultMaxResults = 100

	// maxContentMatches bounds the matched lines reported per file.
	maxContentMatches = 10
)

// SearchOptions tunes SearchFiles.
type SearchOptions struct {
	UseRegex      bool
	SearchContent bool
	MaxResults    int
}

// SearchResult is one hit of SearchFiles. Matches holds matching lines
// when content search is on. Score is reserved for future ranking; the
// default order is first-match.
type SearchResult struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Type    EntryType `json:"type"`
	Matches []string  `json:"matches,omitempty"`
	Score   float64   `json:"score,omitempty"`
}

type searchMatcher struct {
	pattern string
	regex   *regexp.Regexp
	glob    bool
}

func newSearchMatcher(pattern string, useRegex bool) (*searchMatcher, error) {
	if pattern == "" {
		return nil, validationError("pattern must not be empty")
	}
	m := &searchMatcher{pattern: strings.ToLower(pattern)}
	if useRegex {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, validationError("invalid search pattern %q: %v", pattern, err)
		}
		m.regex = re
		return m, nil
	}
	m.glob = strings.ContainsAny(pattern, "*?[{")
	return m, nil
}

func (m *searchMatcher) matchName(name string) bool {
	if m.regex != nil {
		return m.regex.MatchString(name)
	}
	if m.glob {
		ok, err := doublestar.Match(m.pattern, strings.ToLower(name))
		return err == nil && ok
	}
	return strings.Contains(strings.ToLower(name), m.pattern)
}

func (m *searchMatcher) matchLine(line string) bool {
	if m.regex != nil {
		return m.regex.MatchString(line)
	}
	return strings.Contains(strings.ToLower(line), m.pattern)
}

// SearchFiles walks basePath up to 10 levels deep collecting entries
// whose name matches pattern, plus (when opts.SearchContent is set)
// files whose text content matches it line by line, case-insensitively.
// Blocked entries and unreadable files are skipped, not fatal.
func (e *Engine) SearchFiles(basePath, pattern string, opts SearchOptions) ([]SearchResult, error) {
	abs, err := e.resolve(basePath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return nil, notFound("directory not found: %s", basePath)
		}
		return nil, ioError(err, "failed to stat %s: %v", basePath, err)
	}

	matcher, err := newSearchMatcher(pattern, opts.UseRegex)
	if err != nil {
		return nil, err
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	results := make([]SearchResult, 0, 16)
	e.searchDir(abs, matcher, opts.SearchContent, 0, maxResults, &results)
	return results, nil
}

func (e *Engine) searchDir(dir string, matcher *searchMatcher, searchContent bool, depth, maxResults int, results *[]SearchResult) {
	if depth > searchMaxDepth || len(*results) >= maxResults {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable directories degrade to an empty subtree.
		return
	}

	for _, entry := range entries {
		if len(*results) >= maxResults {
			return
		}

		full := filepath.Join(dir, entry.Name())
		if !e.permitted(full) {
			continue
		}

		result := SearchResult{
			Path: full,
			Name: entry.Name(),
			Type: entryType(entry.Type()),
		}

		matched := matcher.matchName(entry.Name())
		if !matched && searchContent && entry.Type().IsRegular() {
			result.Matches = matchContent(full, matcher)
			matched = len(result.Matches) > 0
		}
		if matched {
			*results = append(*results, result)
		}

		if entry.IsDir() {
			e.searchDir(full, matcher, searchContent, depth+1, maxResults, results)
		}
	}
}

func matchContent(path string, matcher *searchMatcher) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var matches []string
	for _, line := range strings.Split(string(data), "\n") {
		if matcher.matchLine(line) {
			matches = append(matches, strings.TrimRight(line, "\r"))
			if len(matches) >= maxContentMatches {
				break
			}
		}
	}
	return matches
}
