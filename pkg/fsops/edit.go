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
	"strings"

	"github.com/go-playground/validator/v10"
)

// Edit operation types.
const (
	EditSearchReplace = "search_replace"
	EditInsert        = "insert"
	EditDelete        = "delete"
)

// EditOperation is one step of an edit batch. Operations apply in array
// order against a single in-memory buffer; each operation sees the
// buffer state left by the previous one.
type EditOperation struct {
	Type string `json:"type" validate:"required,oneof=search_replace insert delete"`

	// search_replace: the first occurrence of Search is replaced.
	Search  string `json:"search,omitempty"`
	Replace string `json:"replace,omitempty"`

	// insert: Content is spliced at byte offset Position.
	Position *int   `json:"position,omitempty"`
	Content  string `json:"content,omitempty"`

	// delete: lines [StartLine, EndLine], 1-based inclusive.
	StartLine int `json:"startLine,omitempty"`
	EndLine   int `json:"endLine,omitempty"`
}

// Validate checks the operation's shape.
func (op *EditOperation) Validate() error {
	validate := validator.New()
	return validate.Struct(op)
}

// EditFile loads path as text, applies ops in order, and writes the
// result back atomically (temp file + rename). If any operation fails,
// nothing is written: the on-disk content stays byte-identical to its
// pre-call state.
func (e *Engine) EditFile(path string, ops []EditOperation) error {
	abs, err := e.resolve(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return notFound("file not found: %s", path)
		}
		return ioError(err, "failed to stat %s: %v", path, err)
	}
	if info.IsDir() {
		return validationError("path is a directory: %s", path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return ioError(err, "failed to read file %s: %v", path, err)
	}

	edited, err := applyEdits(string(data), ops)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(abs, []byte(edited), info.Mode().Perm()); err != nil {
		return ioError(err, "failed to write file %s: %v", path, err)
	}
	return nil
}

// applyEdits interprets ops over buffer, strictly in input order with no
// reordering or cross-operation conflict detection.
func applyEdits(buffer string, ops []EditOperation) (string, error) {
	if len(ops) == 0 {
		return "", validationError("edits must contain at least one operation")
	}

	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return "", validationError("edit %d: invalid operation: %v", i, err)
		}

		var err error
		switch op.Type {
		case EditSearchReplace:
			buffer, err = applySearchReplace(buffer, i, op)
		case EditInsert:
			buffer, err = applyInsert(buffer, i, op)
		case EditDelete:
			buffer, err = applyDelete(buffer, i, op)
		}
		if err != nil {
			return "", err
		}
	}
	return buffer, nil
}

func applySearchReplace(buffer string, i int, op EditOperation) (string, error) {
	if op.Search == "" {
		return "", validationError("edit %d: search_replace requires a non-empty search string", i)
	}
	idx := strings.Index(buffer, op.Search)
	if idx < 0 {
		// Hard precondition: not found in the current buffer is a
		// failure, not a no-op.
		return "", operationError("edit %d: search string not found: %q", i, op.Search)
	}
	return buffer[:idx] + op.Replace + buffer[idx+len(op.Search):], nil
}

func applyInsert(buffer string, i int, op EditOperation) (string, error) {
	if op.Position == nil {
		return "", validationError("edit %d: insert requires a position", i)
	}
	pos := *op.Position
	// Out-of-bounds positions are rejected rather than clamped.
	if pos < 0 || pos > len(buffer) {
		return "", operationError("edit %d: insert position %d is out of bounds (buffer length %d)", i, pos, len(buffer))
	}
	return buffer[:pos] + op.Content + buffer[pos:], nil
}

func applyDelete(buffer string, i int, op EditOperation) (string, error) {
	lines := strings.Split(buffer, "\n")
	if op.StartLine < 1 || op.StartLine > len(lines) {
		return "", operationError("edit %d: delete start line %d is out of range (file has %d lines)", i, op.StartLine, len(lines))
	}
	if op.EndLine < op.StartLine {
		return "", operationError("edit %d: delete end line %d precedes start line %d", i, op.EndLine, op.StartLine)
	}
	end := op.EndLine
	if end > len(lines) {
		end = len(lines)
	}
	kept := append(lines[:op.StartLine-1:op.StartLine-1], lines[end:]...)
	return strings.Join(kept, "\n"), nil
}

// writeFileAtomic writes data to a sibling temp file and renames it over
// path so readers never observe a partial write.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
