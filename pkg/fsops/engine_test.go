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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/egdesk/fsmcpd/pkg/security"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	return NewEngine([]string{dir}, nil), dir
}

func TestReadWriteRoundTrip(t *testing.T) {
	engine, dir := newTestEngine(t)
	path := filepath.Join(dir, "notes.txt")

	if err := engine.WriteFile(path, "hello world", ""); err != nil {
		t.Fatalf("write: %v", err)
	}
	content, err := engine.ReadFile(path, "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if content != "hello world" {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestReadWriteBase64(t *testing.T) {
	engine, dir := newTestEngine(t)
	path := filepath.Join(dir, "blob.bin")
	raw := []byte{0x00, 0xff, 0x10, 0x80}

	if err := engine.WriteFile(path, base64.StdEncoding.EncodeToString(raw), "base64"); err != nil {
		t.Fatalf("write: %v", err)
	}
	encoded, err := engine.ReadFile(path, "base64")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(decoded) != string(raw) {
		t.Fatalf("round trip mismatch: %v", decoded)
	}
}

func TestWriteFileInvalidBase64(t *testing.T) {
	engine, dir := newTestEngine(t)

	err := engine.WriteFile(filepath.Join(dir, "blob.bin"), "not base64!!", "base64")
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %s", KindOf(err))
	}
}

func TestWriteFileCreatesParents(t *testing.T) {
	engine, dir := newTestEngine(t)
	path := filepath.Join(dir, "a", "b", "c.txt")

	if err := engine.WriteFile(path, "nested", ""); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "nested" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestReadFileNotFound(t *testing.T) {
	engine, dir := newTestEngine(t)

	_, err := engine.ReadFile(filepath.Join(dir, "missing.txt"), "")
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected not found, got %s", KindOf(err))
	}
}

func TestRelativePathResolvesAgainstFirstAllowedDirectory(t *testing.T) {
	engine, dir := newTestEngine(t)
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"demo"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	content, err := engine.ReadFile("package.json", "")
	if err != nil {
		t.Fatalf("read relative: %v", err)
	}
	if !strings.Contains(content, "demo") {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestAccessOutsideAllowedDirectoriesDenied(t *testing.T) {
	engine, _ := newTestEngine(t)
	outside := filepath.Join(t.TempDir(), "outside.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := engine.ReadFile(outside, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindAccessDenied {
		t.Fatalf("expected access denied, got %s", KindOf(err))
	}
	if !strings.Contains(err.Error(), "access denied") {
		t.Fatalf("expected access denied message, got: %v", err)
	}
	if err := engine.WriteFile(outside, "overwritten", ""); KindOf(err) != KindAccessDenied {
		t.Fatalf("expected write denial, got %v", err)
	}
	if err := engine.DeleteFile(outside, false); KindOf(err) != KindAccessDenied {
		t.Fatalf("expected delete denial, got %v", err)
	}
}

func TestSecurityPolicyAppliesInsideAllowedDirectories(t *testing.T) {
	engine, dir := newTestEngine(t)

	err := engine.WriteFile(filepath.Join(dir, ".env"), "SECRET=1", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindAccessDenied {
		t.Fatalf("expected access denied, got %s", KindOf(err))
	}
}

func TestListDirectorySkipsBlockedEntries(t *testing.T) {
	engine, dir := newTestEngine(t)
	if err := os.WriteFile(filepath.Join(dir, "ok.txt"), []byte("ok"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SECRET=1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}

	entries, err := engine.ListDirectory(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected blocked entries to be skipped, got %d entries", len(entries))
	}
	if entries[0].Name != "ok.txt" || entries[0].Type != EntryTypeFile {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
	if entries[0].Size == nil || *entries[0].Size != 2 {
		t.Fatalf("expected size 2, got %v", entries[0].Size)
	}
}

func TestCreateDirectory(t *testing.T) {
	engine, dir := newTestEngine(t)

	nested := filepath.Join(dir, "x", "y", "z")
	if err := engine.CreateDirectory(nested, false); err == nil {
		t.Fatal("expected non-recursive create to fail without parents")
	}
	if err := engine.CreateDirectory(nested, true); err != nil {
		t.Fatalf("recursive create: %v", err)
	}
	info, err := os.Stat(nested)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory, err=%v", err)
	}
}

func TestMoveFile(t *testing.T) {
	engine, dir := newTestEngine(t)
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "sub", "dst.txt")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := engine.MoveFile(src, dst); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected source to be gone")
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "payload" {
		t.Fatalf("destination: %q, err=%v", data, err)
	}

	if err := engine.MoveFile(filepath.Join(dir, "absent.txt"), dst); KindOf(err) != KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCopyFileRecursesIntoDirectories(t *testing.T) {
	engine, dir := newTestEngine(t)
	src := filepath.Join(dir, "tree")
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "copy")
	if err := engine.CopyFile(src, dst); err != nil {
		t.Fatalf("copy: %v", err)
	}
	for _, rel := range []string{"a.txt", filepath.Join("sub", "b.txt")} {
		if _, err := os.Stat(filepath.Join(dst, rel)); err != nil {
			t.Fatalf("expected %s in copy: %v", rel, err)
		}
	}
	// Source stays intact.
	if _, err := os.Stat(filepath.Join(src, "a.txt")); err != nil {
		t.Fatalf("source disturbed: %v", err)
	}
}

func TestDeleteFile(t *testing.T) {
	engine, dir := newTestEngine(t)
	file := filepath.Join(dir, "gone.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := engine.DeleteFile(file, false); err != nil {
		t.Fatalf("delete file: %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Fatal("expected file removed")
	}
	if err := engine.DeleteFile(file, false); KindOf(err) != KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteNonEmptyDirectoryRequiresRecursive(t *testing.T) {
	engine, dir := newTestEngine(t)
	target := filepath.Join(dir, "full")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "child.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := engine.DeleteFile(target, false)
	if KindOf(err) != KindOperation {
		t.Fatalf("expected operation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "recursive") {
		t.Fatalf("expected hint about recursive, got: %v", err)
	}
	if _, statErr := os.Stat(target); statErr != nil {
		t.Fatal("directory must survive the failed delete")
	}

	if err := engine.DeleteFile(target, true); err != nil {
		t.Fatalf("recursive delete: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatal("expected directory removed")
	}
}

func TestGetFileInfo(t *testing.T) {
	engine, dir := newTestEngine(t)
	path := filepath.Join(dir, "info.txt")
	if err := os.WriteFile(path, []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := engine.GetFileInfo(path)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Name != "info.txt" || !info.IsFile || info.IsDirectory {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Size != 5 {
		t.Fatalf("expected size 5, got %d", info.Size)
	}
	if info.Permissions != "644" {
		t.Fatalf("expected permissions 644, got %s", info.Permissions)
	}
	if info.Modified.IsZero() {
		t.Fatal("expected a modified time")
	}

	dirInfo, err := engine.GetFileInfo(dir)
	if err != nil {
		t.Fatalf("dir info: %v", err)
	}
	if !dirInfo.IsDirectory || dirInfo.IsFile {
		t.Fatalf("unexpected dir info: %+v", dirInfo)
	}
}

func TestAllowedDirectorySetMutation(t *testing.T) {
	engine, dir := newTestEngine(t)
	extra := t.TempDir()
	target := filepath.Join(extra, "late.txt")
	if err := os.WriteFile(target, []byte("late"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := engine.ReadFile(target, ""); KindOf(err) != KindAccessDenied {
		t.Fatalf("expected denial before add, got %v", err)
	}

	if err := engine.AddAllowedDirectory(extra); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := engine.ReadFile(target, ""); err != nil {
		t.Fatalf("expected read after add: %v", err)
	}
	if got := len(engine.ListAllowedDirectories()); got != 2 {
		t.Fatalf("expected 2 allowed directories, got %d", got)
	}

	if err := engine.RemoveAllowedDirectory(extra); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := engine.ReadFile(target, ""); KindOf(err) != KindAccessDenied {
		t.Fatalf("expected denial after remove, got %v", err)
	}

	// Duplicate adds collapse.
	if err := engine.AddAllowedDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if got := len(engine.ListAllowedDirectories()); got != 1 {
		t.Fatalf("expected duplicate add to collapse, got %d entries", got)
	}
}

func TestSymlinkEscapeDenied(t *testing.T) {
	engine, dir := newTestEngine(t)
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(secret, []byte("top-secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	alias := filepath.Join(dir, "alias.txt")
	if err := os.Symlink(secret, alias); err != nil {
		t.Fatal(err)
	}

	if _, err := engine.ReadFile(alias, ""); KindOf(err) != KindAccessDenied {
		t.Fatalf("expected read denial through symlink, got %v", err)
	}
	if err := engine.WriteFile(alias, "overwritten", ""); KindOf(err) != KindAccessDenied {
		t.Fatalf("expected write denial through symlink, got %v", err)
	}
	if err := engine.DeleteFile(alias, false); KindOf(err) != KindAccessDenied {
		t.Fatalf("expected delete denial through symlink, got %v", err)
	}
	if err := engine.EditFile(alias, []EditOperation{
		{Type: EditSearchReplace, Search: "top", Replace: "no"},
	}); KindOf(err) != KindAccessDenied {
		t.Fatalf("expected edit denial through symlink, got %v", err)
	}

	data, err := os.ReadFile(secret)
	if err != nil || string(data) != "top-secret" {
		t.Fatalf("outside file disturbed: %q, err=%v", data, err)
	}
}

func TestSymlinkedDirectoryEscapeDenied(t *testing.T) {
	engine, dir := newTestEngine(t)
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "hidden.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(dir, "extdir")); err != nil {
		t.Fatal(err)
	}

	if _, err := engine.ReadFile(filepath.Join(dir, "extdir", "hidden.txt"), ""); KindOf(err) != KindAccessDenied {
		t.Fatalf("expected read denial through linked directory, got %v", err)
	}
	// Not-yet-existing targets resolve through the linked parent too.
	if err := engine.WriteFile(filepath.Join(dir, "extdir", "new.txt"), "x", ""); KindOf(err) != KindAccessDenied {
		t.Fatalf("expected write denial through linked directory, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(outside, "new.txt")); !os.IsNotExist(err) {
		t.Fatal("file escaped the sandbox through the linked directory")
	}
}

func TestSymlinkInsideSandboxResolves(t *testing.T) {
	engine, dir := newTestEngine(t)
	target := filepath.Join(dir, "target.txt")
	if err := os.WriteFile(target, []byte("inside"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}

	content, err := engine.ReadFile(link, "")
	if err != nil {
		t.Fatalf("read through in-sandbox symlink: %v", err)
	}
	if content != "inside" {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestCopyFileSkipsSymlinkEntries(t *testing.T) {
	engine, dir := newTestEngine(t)
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(secret, []byte("top-secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(dir, "tree")
	if err := os.Mkdir(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "plain.txt"), []byte("ok"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(secret, filepath.Join(src, "alias.txt")); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "copy")
	if err := engine.CopyFile(src, dst); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "plain.txt")); err != nil {
		t.Fatalf("expected plain.txt in copy: %v", err)
	}
	if _, err := os.Lstat(filepath.Join(dst, "alias.txt")); !os.IsNotExist(err) {
		t.Fatal("symlink entry must not be copied")
	}
}

func TestUpdateSecurityConfig(t *testing.T) {
	engine, dir := newTestEngine(t)
	path := filepath.Join(dir, "report.tmp")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := engine.ReadFile(path, ""); err != nil {
		t.Fatalf("expected read before config swap: %v", err)
	}

	cfg := security.DefaultConfig()
	cfg.AdditionalBlockedExtensions = []string{"tmp"}
	engine.UpdateSecurityConfig(cfg)

	if _, err := engine.ReadFile(path, ""); KindOf(err) != KindAccessDenied {
		t.Fatalf("expected denial after config swap, got %v", err)
	}
}

func TestConcurrentWritesLastWriteWins(t *testing.T) {
	engine, dir := newTestEngine(t)
	path := filepath.Join(dir, "race.txt")

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := engine.WriteFile(path, fmt.Sprintf("writer-%d", n), ""); err != nil {
				t.Errorf("write %d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	content, err := engine.ReadFile(path, "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	// No winner is guaranteed, but the surviving content must be exactly
	// one writer's payload, never an interleaving.
	if !strings.HasPrefix(content, "writer-") {
		t.Fatalf("torn write observed: %q", content)
	}
}
