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

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/egdesk/fsmcpd/pkg/fsops"
	"github.com/egdesk/fsmcpd/pkg/mcp"
	"github.com/egdesk/fsmcpd/pkg/security"
	"github.com/egdesk/fsmcpd/pkg/web/model"
)

func newTestRouter(t *testing.T, opts Options) (*gin.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	engine := fsops.NewEngine([]string{dir}, security.DefaultConfig())
	dispatcher := mcp.NewDispatcher(engine, "fsmcpd-test", "0.0.1")
	if opts.ServerName == "" {
		opts.ServerName = "fsmcpd-test"
		opts.ServerVersion = "0.0.1"
	}
	return NewRouter(dispatcher, opts), dir
}

func serve(r *gin.Engine, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRouterToolCallRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	write := serve(r, http.MethodPost, "/mcp",
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"fs_write_file","arguments":{"path":"note.txt","content":"via router"}}}`, nil)
	if write.Code != http.StatusOK {
		t.Fatalf("write: expected 200, got %d: %s", write.Code, write.Body.String())
	}

	read := serve(r, http.MethodPost, "/mcp",
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"fs_read_file","arguments":{"path":"note.txt"}}}`, nil)
	if read.Code != http.StatusOK || !strings.Contains(read.Body.String(), "via router") {
		t.Fatalf("read: code %d body %s", read.Code, read.Body.String())
	}
}

func TestRouterMessageEndpointSharesDispatcher(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	resp := serve(r, http.MethodPost, "/message", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, nil)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "pong") {
		t.Fatalf("code %d body %s", resp.Code, resp.Body.String())
	}
}

func TestRouterMalformedMessageBody(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	resp := serve(r, http.MethodPost, "/message", "{not json", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var rpc mcp.Response
	if err := json.Unmarshal(resp.Body.Bytes(), &rpc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rpc.Error == nil || rpc.Error.Code != mcp.CodeParseError {
		t.Fatalf("expected -32700, got %+v", rpc.Error)
	}
}

func TestRouterHealth(t *testing.T) {
	r, dir := newTestRouter(t, Options{})

	resp := serve(r, http.MethodGet, "/health", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var health model.HealthResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "healthy" || len(health.AllowedDirectories) != 1 || health.AllowedDirectories[0] != dir {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestRouterNotFound(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	resp := serve(r, http.MethodGet, "/no/such/route", "", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "endpoints") {
		t.Fatalf("expected endpoint catalog, got: %s", resp.Body.String())
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	resp := serve(r, http.MethodOptions, "/mcp", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected allow-origin: %q", got)
	}
	if got := resp.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, model.ApiAccessTokenHeader) {
		t.Fatalf("expected token header allowed, got: %q", got)
	}
}

func TestRouterAccessToken(t *testing.T) {
	r, _ := newTestRouter(t, Options{AccessToken: "sesame"})

	body := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	if resp := serve(r, http.MethodPost, "/mcp", body, nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}
	if resp := serve(r, http.MethodPost, "/mcp", body, map[string]string{model.ApiAccessTokenHeader: "wrong"}); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", resp.Code)
	}
	if resp := serve(r, http.MethodPost, "/mcp", body, map[string]string{model.ApiAccessTokenHeader: "sesame"}); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.Code)
	}
}

func TestRouterSSEStream(t *testing.T) {
	r, _ := newTestRouter(t, Options{HeartbeatInterval: time.Minute})

	w := httptest.NewRecorder()
	reqCtx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/sse", nil).WithContext(reqCtx)
	time.AfterFunc(50*time.Millisecond, cancel)
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type: %q", got)
	}
	if !strings.Contains(w.Body.String(), "event: endpoint") {
		t.Fatalf("expected endpoint announcement, got: %q", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"endpoint":"/message"`) {
		t.Fatalf("expected message endpoint in event data, got: %q", w.Body.String())
	}
}
