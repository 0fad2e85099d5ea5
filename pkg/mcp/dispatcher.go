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

	"github.com/egdesk/fsmcpd/pkg/fsops"
	"github.com/egdesk/fsmcpd/pkg/log"
)

// ProtocolVersion is the MCP protocol revision this server speaks.
const ProtocolVersion = "2024-11-05"

// Dispatcher turns JSON-RPC requests into engine calls. It holds no
// transport state, so one instance serves every transport adapter; each
// Dispatch call is a pure request-to-response mapping apart from the
// filesystem work itself.
type Dispatcher struct {
	engine  *fsops.Engine
	tools   map[string]*toolEntry
	order   []string
	name    string
	version string
}

// NewDispatcher builds a Dispatcher bound to engine. The tool catalog
// and its argument schemas are static; a compile failure is a programming
// error and panics.
func NewDispatcher(engine *fsops.Engine, name, version string) *Dispatcher {
	tools, order, err := newToolset()
	if err != nil {
		panic(err)
	}
	return &Dispatcher{
		engine:  engine,
		tools:   tools,
		order:   order,
		name:    name,
		version: version,
	}
}

// Tools returns the catalog in registration order.
func (d *Dispatcher) Tools() []Tool {
	out := make([]Tool, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.tools[name].tool)
	}
	return out
}

// ToolNames returns the catalog's tool names in registration order.
func (d *Dispatcher) ToolNames() []string {
	return append([]string(nil), d.order...)
}

// Engine exposes the engine for the server shell (health reporting).
func (d *Dispatcher) Engine() *fsops.Engine {
	return d.engine
}

// Dispatch parses raw as a JSON-RPC request and handles it. It returns
// nil for notifications. Malformed bodies and malformed envelopes yield
// a -32700 response; nothing escapes as a panic or unstructured error.
func (d *Dispatcher) Dispatch(raw []byte) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return NewError(nil, CodeParseError, fmt.Sprintf("Parse error: %v", err))
	}
	if err := req.Validate(); err != nil {
		return NewError(req.ID, CodeParseError, fmt.Sprintf("Invalid request envelope: %v", err))
	}
	return d.DispatchRequest(&req)
}

// DispatchRequest handles a parsed request.
func (d *Dispatcher) DispatchRequest(req *Request) *Response {
	resp := d.handle(req)
	if req.IsNotification() {
		return nil
	}
	return resp
}

func (d *Dispatcher) handle(req *Request) *Response {
	switch req.Method {
	case "initialize":
		return NewResult(req.ID, map[string]any{
			"protocolVersion": ProtocolVersion,
			"serverInfo": map[string]any{
				"name":    d.name,
				"version": d.version,
			},
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
		})

	case "tools/list":
		return NewResult(req.ID, map[string]any{"tools": d.Tools()})

	case "tools/call":
		return d.callTool(req)

	case "ping":
		return NewResult(req.ID, map[string]any{"message": "pong"})

	default:
		return NewError(req.ID, CodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (d *Dispatcher) callTool(req *Request) *Response {
	var params callParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return NewError(req.ID, CodeInternalError, fmt.Sprintf("Invalid tool call parameters: %v", err))
		}
	}
	if params.Name == "" {
		return NewError(req.ID, CodeInternalError, "Tool name is required")
	}

	entry, ok := d.tools[params.Name]
	if !ok {
		return NewError(req.ID, CodeInternalError, fmt.Sprintf("Unknown tool: %s", params.Name))
	}

	args := params.Arguments
	if args == nil {
		args = map[string]any{}
	}

	// Argument validation is a generic internal error, matching the
	// wire behavior clients already depend on.
	if err := entry.schema.Validate(map[string]any(args)); err != nil {
		return NewError(req.ID, CodeInternalError, fmt.Sprintf("Invalid arguments for %s: %v", params.Name, err))
	}

	result, err := entry.handler(d.engine, args)
	if err != nil {
		log.Debug("tool %s failed: %v", params.Name, err)
		return NewError(req.ID, CodeInternalError, err.Error())
	}

	text, err := json.Marshal(result)
	if err != nil {
		return NewError(req.ID, CodeInternalError, fmt.Sprintf("Failed to serialize result: %v", err))
	}

	return NewResult(req.ID, map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": string(text)},
		},
	})
}
