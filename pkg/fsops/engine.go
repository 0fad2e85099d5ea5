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
	"encoding/base64"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/egdesk/fsmcpd/pkg/security"
)

// EntryType classifies a directory entry.
type EntryType string

const (
	EntryTypeFile      EntryType = "file"
	EntryTypeDirectory EntryType = "directory"
	EntryTypeSymlink   EntryType = "symlink"
	EntryTypeOther     EntryType = "other"
)

// FileInfo is the metadata payload returned by GetFileInfo.
type FileInfo struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	IsDirectory bool      `json:"isDirectory"`
	IsFile      bool      `json:"isFile"`
	Permissions string    `json:"permissions"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	Accessed    time.Time `json:"accessed"`
}

// DirectoryEntry is one row of a ListDirectory result. Size and Modified
// are omitted when stat fails (e.g. broken symlink).
type DirectoryEntry struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	Type     EntryType  `json:"type"`
	Size     *int64     `json:"size,omitempty"`
	Modified *time.Time `json:"modified,omitempty"`
}

// Engine performs sandboxed file operations. Every path is resolved to
// its absolute form, checked against the allowed-directory set, and then
// passed through the security policy before any filesystem call.
//
// The allowed set and security config live for the Engine's lifetime and
// are shared by all concurrent requests; everything else is per call.
// The Engine performs no cross-request locking: concurrent writers to the
// same path race and the last write wins.
type Engine struct {
	mu      sync.RWMutex
	allowed []string
	cfg     *security.Config
}

// NewEngine builds an Engine restricted to allowedDirs. An empty set
// means unrestricted; callers are expected to pass at least one directory.
// A nil cfg falls back to security.DefaultConfig.
func NewEngine(allowedDirs []string, cfg *security.Config) *Engine {
	if cfg == nil {
		cfg = security.DefaultConfig()
	}
	e := &Engine{cfg: cfg}
	for _, dir := range allowedDirs {
		if abs, err := canonicalDir(dir); err == nil {
			e.allowed = append(e.allowed, abs)
		}
	}
	return e
}

// canonicalDir makes dir absolute and resolves symlinks so the allowed
// set is stored in the same form resolve compares against.
func canonicalDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return filepath.Clean(abs), nil
}

// ListAllowedDirectories returns a copy of the allowed-directory set.
func (e *Engine) ListAllowedDirectories() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.allowed...)
}

// AddAllowedDirectory appends dir to the allowed set.
func (e *Engine) AddAllowedDirectory(dir string) error {
	abs, err := canonicalDir(dir)
	if err != nil {
		return validationError("invalid directory path %s: %v", dir, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.allowed {
		if existing == abs {
			return nil
		}
	}
	e.allowed = append(e.allowed, abs)
	return nil
}

// RemoveAllowedDirectory removes dir from the allowed set.
func (e *Engine) RemoveAllowedDirectory(dir string) error {
	abs, err := canonicalDir(dir)
	if err != nil {
		return validationError("invalid directory path %s: %v", dir, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, existing := range e.allowed {
		if existing == abs {
			e.allowed = append(e.allowed[:i], e.allowed[i+1:]...)
			return nil
		}
	}
	return nil
}

// UpdateSecurityConfig swaps the security config for subsequent checks.
func (e *Engine) UpdateSecurityConfig(cfg *security.Config) {
	if cfg == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}

// resolve canonicalizes path and runs the sandbox checks. Relative paths
// resolve against the first allowed directory so clients can address
// files without knowing the sandbox root. Symlinks are resolved before
// the checks, so a link inside an allowed directory cannot alias content
// outside it.
func (e *Engine) resolve(path string) (string, error) {
	if path == "" {
		return "", validationError("path must not be empty")
	}

	e.mu.RLock()
	allowed := e.allowed
	cfg := e.cfg
	e.mu.RUnlock()

	var abs string
	if !filepath.IsAbs(path) && len(allowed) > 0 {
		abs = filepath.Join(allowed[0], path)
	} else {
		var err error
		abs, err = filepath.Abs(path)
		if err != nil {
			return "", validationError("invalid path %s: %v", path, err)
		}
	}
	abs = filepath.Clean(abs)

	real, err := resolveSymlinks(abs)
	if err != nil {
		return "", ioError(err, "failed to resolve path %s: %v", path, err)
	}

	if len(allowed) > 0 {
		inside := false
		for _, dir := range allowed {
			if real == dir || strings.HasPrefix(real, dir+string(filepath.Separator)) {
				inside = true
				break
			}
		}
		if !inside {
			return "", accessDenied("access denied: %s is outside the allowed directories", abs)
		}
	}

	if decision := security.Evaluate(real, cfg); decision.Blocked {
		return "", accessDenied("access denied: %s", decision.Reason)
	}

	return real, nil
}

// resolveSymlinks returns abs with every symlink expanded. For paths
// that do not exist yet, the deepest existing ancestor is resolved and
// the remainder rejoined, so a new file addressed through a linked
// parent still canonicalizes to its true location.
func resolveSymlinks(abs string) (string, error) {
	suffix := ""
	current := abs
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Clean(filepath.Join(resolved, suffix)), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return abs, nil
		}
		suffix = filepath.Join(filepath.Base(current), suffix)
		current = parent
	}
}

// permitted reports whether abs passes the sandbox checks. Used where
// blocked entries are skipped instead of errored.
func (e *Engine) permitted(abs string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !security.Evaluate(abs, e.cfg).Blocked
}

// ReadFile returns the file content. Encoding "base64" returns the raw
// bytes base64-encoded; anything else (including empty) reads as UTF-8.
func (e *Engine) ReadFile(path, encoding string) (string, error) {
	abs, err := e.resolve(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", notFound("file not found: %s", path)
		}
		return "", ioError(err, "failed to read file %s: %v", path, err)
	}

	if encoding == "base64" {
		return base64.StdEncoding.EncodeToString(data), nil
	}
	return string(data), nil
}

// WriteFile writes content to path, creating parent directories as
// needed. Existing content is overwritten unconditionally: there is no
// optimistic-concurrency check, the last writer wins.
func (e *Engine) WriteFile(path, content, encoding string) error {
	abs, err := e.resolve(path)
	if err != nil {
		return err
	}

	data := []byte(content)
	if encoding == "base64" {
		data, err = base64.StdEncoding.DecodeString(content)
		if err != nil {
			return validationError("invalid base64 content: %v", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return ioError(err, "failed to create parent directory for %s: %v", path, err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return ioError(err, "failed to write file %s: %v", path, err)
	}
	return nil
}

// ListDirectory lists the entries of path. Entries that fail the security
// policy are skipped rather than errored, so a listing degrades
// gracefully instead of failing wholesale.
func (e *Engine) ListDirectory(path string) ([]DirectoryEntry, error) {
	abs, err := e.resolve(path)
	if err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound("directory not found: %s", path)
		}
		return nil, ioError(err, "failed to list directory %s: %v", path, err)
	}

	entries := make([]DirectoryEntry, 0, len(dirents))
	for _, dirent := range dirents {
		full := filepath.Join(abs, dirent.Name())
		if !e.permitted(full) {
			continue
		}

		entry := DirectoryEntry{
			Name: dirent.Name(),
			Path: full,
			Type: entryType(dirent.Type()),
		}
		if info, err := dirent.Info(); err == nil {
			size := info.Size()
			modified := info.ModTime()
			entry.Size = &size
			entry.Modified = &modified
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CreateDirectory creates a directory. With recursive set, missing
// parents are created as well.
func (e *Engine) CreateDirectory(path string, recursive bool) error {
	abs, err := e.resolve(path)
	if err != nil {
		return err
	}

	if recursive {
		err = os.MkdirAll(abs, 0o755)
	} else {
		err = os.Mkdir(abs, 0o755)
	}
	if err != nil {
		return ioError(err, "failed to create directory %s: %v", path, err)
	}
	return nil
}

// MoveFile renames src to dst. Both endpoints are validated and the
// destination's parent directory is created if missing.
func (e *Engine) MoveFile(src, dst string) error {
	srcAbs, err := e.resolve(src)
	if err != nil {
		return err
	}
	dstAbs, err := e.resolve(dst)
	if err != nil {
		return err
	}

	if _, err := os.Stat(srcAbs); err != nil {
		if os.IsNotExist(err) {
			return notFound("source not found: %s", src)
		}
		return ioError(err, "failed to stat %s: %v", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dstAbs), 0o755); err != nil {
		return ioError(err, "failed to create destination directory for %s: %v", dst, err)
	}
	if err := os.Rename(srcAbs, dstAbs); err != nil {
		return ioError(err, "failed to move %s to %s: %v", src, dst, err)
	}
	return nil
}

// CopyFile copies src to dst, recursing into directories. Both endpoints
// are validated and the destination's parent directory is created if
// missing.
func (e *Engine) CopyFile(src, dst string) error {
	srcAbs, err := e.resolve(src)
	if err != nil {
		return err
	}
	dstAbs, err := e.resolve(dst)
	if err != nil {
		return err
	}

	info, err := os.Stat(srcAbs)
	if err != nil {
		if os.IsNotExist(err) {
			return notFound("source not found: %s", src)
		}
		return ioError(err, "failed to stat %s: %v", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dstAbs), 0o755); err != nil {
		return ioError(err, "failed to create destination directory for %s: %v", dst, err)
	}
	if err := copyTree(srcAbs, dstAbs, info); err != nil {
		return ioError(err, "failed to copy %s to %s: %v", src, dst, err)
	}
	return nil
}

func copyTree(src, dst string, info os.FileInfo) error {
	if info.IsDir() {
		if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
			return err
		}
		entries, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			childInfo, err := entry.Info()
			if err != nil {
				return err
			}
			// Symlink entries are skipped, not followed; their targets
			// have not passed the sandbox checks.
			if childInfo.Mode()&fs.ModeSymlink != 0 {
				continue
			}
			if err := copyTree(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name()), childInfo); err != nil {
				return err
			}
		}
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// DeleteFile removes a file or directory. Non-empty directories require
// recursive; the flag is ignored for regular files.
func (e *Engine) DeleteFile(path string, recursive bool) error {
	abs, err := e.resolve(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return notFound("path not found: %s", path)
		}
		return ioError(err, "failed to stat %s: %v", path, err)
	}

	if info.IsDir() {
		if recursive {
			if err := os.RemoveAll(abs); err != nil {
				return ioError(err, "failed to remove directory %s: %v", path, err)
			}
			return nil
		}
		if err := os.Remove(abs); err != nil {
			return operationError("failed to remove directory %s (set recursive to remove non-empty directories): %v", path, err)
		}
		return nil
	}

	if err := os.Remove(abs); err != nil {
		return ioError(err, "failed to remove file %s: %v", path, err)
	}
	return nil
}

// GetFileInfo returns metadata for path.
func (e *Engine) GetFileInfo(path string) (FileInfo, error) {
	abs, err := e.resolve(path)
	if err != nil {
		return FileInfo{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return FileInfo{}, notFound("path not found: %s", path)
		}
		return FileInfo{}, ioError(err, "failed to stat %s: %v", path, err)
	}

	created, accessed := fileTimes(info)
	return FileInfo{
		Path:        abs,
		Name:        info.Name(),
		Size:        info.Size(),
		IsDirectory: info.IsDir(),
		IsFile:      info.Mode().IsRegular(),
		Permissions: strconv.FormatUint(uint64(info.Mode().Perm()), 8),
		Created:     created,
		Modified:    info.ModTime(),
		Accessed:    accessed,
	}, nil
}

func entryType(mode fs.FileMode) EntryType {
	switch {
	case mode&fs.ModeSymlink != 0:
		return EntryTypeSymlink
	case mode.IsDir():
		return EntryTypeDirectory
	case mode.IsRegular():
		return EntryTypeFile
	default:
		return EntryTypeOther
	}
}
