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

package security

import (
	"fmt"
	"strings"
)

// Decision is the result of a policy check.
type Decision struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason,omitempty"`
}

func allowed() Decision {
	return Decision{}
}

func blocked(format string, args ...any) Decision {
	return Decision{Blocked: true, Reason: fmt.Sprintf(format, args...)}
}

// Evaluate decides whether path may be touched under cfg. It is pure:
// no filesystem access, no state. Rules apply in a fixed priority order
// and the first match wins. A nil cfg behaves like DefaultConfig.
func Evaluate(path string, cfg *Config) Decision {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	normalized := normalize(path)
	name := baseName(normalized)
	ext := extension(name)

	for _, prefix := range cfg.AdditionalBlockedPaths {
		if hasPathPrefix(normalized, normalize(prefix)) {
			return blocked("access to path %s is blocked by configuration", prefix)
		}
	}

	if cfg.BlockExtensions && ext != "" {
		for _, e := range blockedExtensions {
			if ext == e {
				return blocked("file extension .%s is not allowed", ext)
			}
		}
		for _, e := range cfg.AdditionalBlockedExtensions {
			if ext == strings.ToLower(strings.TrimPrefix(e, ".")) {
				return blocked("file extension .%s is blocked by configuration", ext)
			}
		}
	}

	if cfg.BlockSystemDirs {
		for _, dir := range systemDirectories {
			if hasPathPrefix(normalized, dir) {
				return blocked("access to system directory %s is not allowed", dir)
			}
		}
	}

	if cfg.BlockAppDirs {
		for _, sub := range applicationDirectories {
			if strings.Contains(normalized, sub) {
				return blocked("access to application directory %s is not allowed", strings.Trim(sub, "/"))
			}
		}
	}

	if cfg.BlockSensitiveFiles {
		for _, prefix := range sensitiveNamePrefixes {
			if strings.HasPrefix(name, prefix) {
				return blocked("access to sensitive file %s is not allowed", name)
			}
		}
		for _, suffix := range sensitiveNameSuffixes {
			if strings.HasSuffix(name, suffix) {
				return blocked("access to sensitive file %s is not allowed", name)
			}
		}
		for _, exact := range sensitiveNames {
			if name == exact {
				return blocked("access to sensitive file %s is not allowed", name)
			}
		}
	}

	if cfg.BlockDirNames {
		for _, segment := range strings.Split(normalized, "/") {
			for _, dir := range blockedDirectoryNames {
				if segment == dir {
					return blocked("access to %s directories is not allowed", dir)
				}
			}
		}
	}

	return allowed()
}

// normalize lowercases the path and folds both separator styles to "/"
// so Windows-style inputs hit the same rules on every host OS.
func normalize(path string) string {
	p := strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

func baseName(normalized string) string {
	trimmed := strings.TrimSuffix(normalized, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// extension returns the lowercased substring after the last dot in name,
// empty when name has no dot or is itself a dotfile like ".env".
func extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}
	return name[idx+1:]
}

// hasPathPrefix reports whether p starts with prefix on a segment
// boundary. Both arguments must already be normalized.
func hasPathPrefix(p, prefix string) bool {
	if prefix == "" {
		return false
	}
	prefix = strings.TrimSuffix(prefix, "/")
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	return len(p) == len(prefix) || p[len(prefix)] == '/'
}
