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
)

// DefaultTreeDepth is used when GetDirectoryTree is called without a
// depth bound.
const DefaultTreeDepth = 5

// TreeNode is one node of a directory tree. Directories carry Children;
// files carry Size.
type TreeNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Type     EntryType   `json:"type"`
	Size     *int64      `json:"size,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

// GetDirectoryTree builds a depth-bounded tree rooted at path. Children
// that fail the security policy are silently omitted, matching the
// ListDirectory degrade-gracefully behavior.
func (e *Engine) GetDirectoryTree(path string, maxDepth int) (*TreeNode, error) {
	abs, err := e.resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound("path not found: %s", path)
		}
		return nil, ioError(err, "failed to stat %s: %v", path, err)
	}
	if !info.IsDir() {
		return nil, validationError("path is not a directory: %s", path)
	}

	if maxDepth <= 0 {
		maxDepth = DefaultTreeDepth
	}

	root := &TreeNode{
		Name: filepath.Base(abs),
		Path: abs,
		Type: EntryTypeDirectory,
	}
	e.fillTree(root, maxDepth, 1)
	return root, nil
}

func (e *Engine) fillTree(node *TreeNode, maxDepth, depth int) {
	if depth > maxDepth {
		return
	}

	entries, err := os.ReadDir(node.Path)
	if err != nil {
		return
	}

	node.Children = make([]*TreeNode, 0, len(entries))
	for _, entry := range entries {
		full := filepath.Join(node.Path, entry.Name())
		if !e.permitted(full) {
			continue
		}

		if entry.IsDir() {
			child := &TreeNode{
				Name: entry.Name(),
				Path: full,
				Type: EntryTypeDirectory,
			}
			e.fillTree(child, maxDepth, depth+1)
			node.Children = append(node.Children, child)
			continue
		}

		child := &TreeNode{
			Name: entry.Name(),
			Path: full,
			Type: EntryTypeFile,
		}
		if info, err := entry.Info(); err == nil {
			size := info.Size()
			child.Size = &size
		}
		node.Children = append(node.Children, child)
	}
}
