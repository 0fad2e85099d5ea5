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

package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/egdesk/fsmcpd/pkg/fsops"
)

// Tool is the descriptor published by tools/list.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// toolHandler runs one tool invocation against the engine. Arguments
// have already passed schema validation.
type toolHandler func(engine *fsops.Engine, args map[string]any) (any, error)

// toolEntry pairs a descriptor with its compiled schema and handler.
// Handlers are looked up by name in a map; argument validation happens
// once, through the shared compiled schema, before dispatch.
type toolEntry struct {
	tool    Tool
	schema  *jsonschema.Schema
	handler toolHandler
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func boolProp(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

func intProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

// newToolset builds the full tool catalog. Schemas are compiled once
// here; tool dispatch later is a plain map lookup.
func newToolset() (map[string]*toolEntry, []string, error) {
	specs := []struct {
		tool    Tool
		handler toolHandler
	}{
		{
			tool: Tool{
				Name:        "fs_read_file",
				Description: "Read the contents of a file",
				InputSchema: objectSchema(map[string]any{
					"path":     stringProp("Path of the file to read"),
					"encoding": stringProp("Content encoding: utf-8 (default) or base64"),
				}, "path"),
			},
			handler: handleReadFile,
		},
		{
			tool: Tool{
				Name:        "fs_write_file",
				Description: "Write content to a file, creating parent directories as needed",
				InputSchema: objectSchema(map[string]any{
					"path":     stringProp("Path of the file to write"),
					"content":  stringProp("Content to write"),
					"encoding": stringProp("Content encoding: utf-8 (default) or base64"),
				}, "path", "content"),
			},
			handler: handleWriteFile,
		},
		{
			tool: Tool{
				Name:        "fs_edit_file",
				Description: "Apply an ordered list of edit operations to a text file; the whole batch is all-or-nothing",
				InputSchema: objectSchema(map[string]any{
					"path": stringProp("Path of the file to edit"),
					"edits": map[string]any{
						"type":        "array",
						"description": "Edit operations applied in order",
						"minItems":    1,
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"type":      map[string]any{"type": "string", "enum": []any{"search_replace", "insert", "delete"}},
								"search":    stringProp("Text to find (search_replace)"),
								"replace":   stringProp("Replacement text (search_replace)"),
								"position":  intProp("Byte offset to insert at (insert)"),
								"content":   stringProp("Text to insert (insert)"),
								"startLine": intProp("First line to delete, 1-based (delete)"),
								"endLine":   intProp("Last line to delete, inclusive (delete)"),
							},
							"required": []string{"type"},
						},
					},
				}, "path", "edits"),
			},
			handler: handleEditFile,
		},
		{
			tool: Tool{
				Name:        "fs_list_directory",
				Description: "List the entries of a directory",
				InputSchema: objectSchema(map[string]any{
					"path": stringProp("Path of the directory to list"),
				}, "path"),
			},
			handler: handleListDirectory,
		},
		{
			tool: Tool{
				Name:        "fs_create_directory",
				Description: "Create a directory",
				InputSchema: objectSchema(map[string]any{
					"path":      stringProp("Path of the directory to create"),
					"recursive": boolProp("Create missing parent directories (default: true)"),
				}, "path"),
			},
			handler: handleCreateDirectory,
		},
		{
			tool: Tool{
				Name:        "fs_move_file",
				Description: "Move or rename a file or directory",
				InputSchema: objectSchema(map[string]any{
					"source":      stringProp("Source path"),
					"destination": stringProp("Destination path"),
				}, "source", "destination"),
			},
			handler: handleMoveFile,
		},
		{
			tool: Tool{
				Name:        "fs_copy_file",
				Description: "Copy a file or directory",
				InputSchema: objectSchema(map[string]any{
					"source":      stringProp("Source path"),
					"destination": stringProp("Destination path"),
				}, "source", "destination"),
			},
			handler: handleCopyFile,
		},
		{
			tool: Tool{
				Name:        "fs_delete_file",
				Description: "Delete a file or directory",
				InputSchema: objectSchema(map[string]any{
					"path":      stringProp("Path to delete"),
					"recursive": boolProp("Remove non-empty directories (ignored for files)"),
				}, "path"),
			},
			handler: handleDeleteFile,
		},
		{
			tool: Tool{
				Name:        "fs_search_files",
				Description: "Search for files by name and optionally by content",
				InputSchema: objectSchema(map[string]any{
					"path":          stringProp("Directory to search under"),
					"pattern":       stringProp("Substring, glob, or regular expression to match"),
					"useRegex":      boolProp("Treat pattern as a regular expression"),
					"searchContent": boolProp("Also match file contents line by line"),
					"maxResults":    intProp("Result cap (default: 100)"),
				}, "path", "pattern"),
			},
			handler: handleSearchFiles,
		},
		{
			tool: Tool{
				Name:        "fs_get_file_info",
				Description: "Get metadata for a file or directory",
				InputSchema: objectSchema(map[string]any{
					"path": stringProp("Path to inspect"),
				}, "path"),
			},
			handler: handleGetFileInfo,
		},
		{
			tool: Tool{
				Name:        "fs_get_directory_tree",
				Description: "Get a depth-bounded tree of a directory",
				InputSchema: objectSchema(map[string]any{
					"path":     stringProp("Root of the tree"),
					"maxDepth": intProp("Maximum depth (default: 5)"),
				}, "path"),
			},
			handler: handleGetDirectoryTree,
		},
		{
			tool: Tool{
				Name:        "fs_list_allowed_directories",
				Description: "List the directories this server is allowed to access",
				InputSchema: objectSchema(map[string]any{}),
			},
			handler: handleListAllowedDirectories,
		},
	}

	entries := make(map[string]*toolEntry, len(specs))
	order := make([]string, 0, len(specs))
	for _, spec := range specs {
		schema, err := compileSchema(spec.tool.Name, spec.tool.InputSchema)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to compile schema for %s: %w", spec.tool.Name, err)
		}
		entries[spec.tool.Name] = &toolEntry{
			tool:    spec.tool,
			schema:  schema,
			handler: spec.handler,
		}
		order = append(order, spec.tool.Name)
	}
	return entries, order, nil
}

func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	resource := name + ".schema.json"
	if err := compiler.AddResource(resource, strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile(resource)
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func argBool(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

func argInt(args map[string]any, key string, def int) int {
	// JSON numbers decode as float64.
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return def
}

func handleReadFile(engine *fsops.Engine, args map[string]any) (any, error) {
	path := argString(args, "path")
	encoding := argString(args, "encoding")
	content, err := engine.ReadFile(path, encoding)
	if err != nil {
		return nil, err
	}
	if encoding == "" {
		encoding = "utf-8"
	}
	return map[string]any{"path": path, "content": content, "encoding": encoding}, nil
}

func handleWriteFile(engine *fsops.Engine, args map[string]any) (any, error) {
	path := argString(args, "path")
	if err := engine.WriteFile(path, argString(args, "content"), argString(args, "encoding")); err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "path": path}, nil
}

func handleEditFile(engine *fsops.Engine, args map[string]any) (any, error) {
	path := argString(args, "path")

	raw, err := json.Marshal(args["edits"])
	if err != nil {
		return nil, fmt.Errorf("invalid edits: %w", err)
	}
	var ops []fsops.EditOperation
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, fmt.Errorf("invalid edits: %w", err)
	}

	if err := engine.EditFile(path, ops); err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "path": path, "operationsApplied": len(ops)}, nil
}

func handleListDirectory(engine *fsops.Engine, args map[string]any) (any, error) {
	path := argString(args, "path")
	entries, err := engine.ListDirectory(path)
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": path, "entries": entries}, nil
}

func handleCreateDirectory(engine *fsops.Engine, args map[string]any) (any, error) {
	path := argString(args, "path")
	if err := engine.CreateDirectory(path, argBool(args, "recursive", true)); err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "path": path}, nil
}

func handleMoveFile(engine *fsops.Engine, args map[string]any) (any, error) {
	src := argString(args, "source")
	dst := argString(args, "destination")
	if err := engine.MoveFile(src, dst); err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "source": src, "destination": dst}, nil
}

func handleCopyFile(engine *fsops.Engine, args map[string]any) (any, error) {
	src := argString(args, "source")
	dst := argString(args, "destination")
	if err := engine.CopyFile(src, dst); err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "source": src, "destination": dst}, nil
}

func handleDeleteFile(engine *fsops.Engine, args map[string]any) (any, error) {
	path := argString(args, "path")
	if err := engine.DeleteFile(path, argBool(args, "recursive", false)); err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "path": path}, nil
}

func handleSearchFiles(engine *fsops.Engine, args map[string]any) (any, error) {
	path := argString(args, "path")
	results, err := engine.SearchFiles(path, argString(args, "pattern"), fsops.SearchOptions{
		UseRegex:      argBool(args, "useRegex", false),
		SearchContent: argBool(args, "searchContent", false),
		MaxResults:    argInt(args, "maxResults", 0),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": path, "results": results, "count": len(results)}, nil
}

func handleGetFileInfo(engine *fsops.Engine, args map[string]any) (any, error) {
	info, err := engine.GetFileInfo(argString(args, "path"))
	if err != nil {
		return nil, err
	}
	return info, nil
}

func handleGetDirectoryTree(engine *fsops.Engine, args map[string]any) (any, error) {
	tree, err := engine.GetDirectoryTree(argString(args, "path"), argInt(args, "maxDepth", 0))
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func handleListAllowedDirectories(engine *fsops.Engine, _ map[string]any) (any, error) {
	return map[string]any{"allowedDirectories": engine.ListAllowedDirectories()}, nil
}
