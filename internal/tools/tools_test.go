package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "b")
	writeFile(t, dir, "a.txt", "a")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatal(err)
	}

	tool := NewListFilesTool(FilesConfig{Workspace: dir})
	got, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	want := "a.txt\nb.txt\nsub/"
	if got != want {
		t.Errorf("Execute() = %q, want %q", got, want)
	}
}

func TestListFilesEscapeRejected(t *testing.T) {
	tool := NewListFilesTool(FilesConfig{Workspace: t.TempDir()})
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"../.."}`))
	if err == nil || !strings.Contains(err.Error(), "escapes workspace") {
		t.Errorf("Execute() error = %v, want workspace escape rejection", err)
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "note.txt", "hello world")

	tool := NewReadFileTool(FilesConfig{Workspace: dir})
	got, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"note.txt"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != "hello world" {
		t.Errorf("Execute() = %q, want hello world", got)
	}
}

func TestReadFileTruncates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.txt", strings.Repeat("x", 100))

	tool := NewReadFileTool(FilesConfig{Workspace: dir, MaxReadBytes: 10})
	got, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"big.txt"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasSuffix(got, "[truncated]") {
		t.Errorf("Execute() = %q, want truncation marker", got)
	}
	if !strings.HasPrefix(got, strings.Repeat("x", 10)) {
		t.Errorf("Execute() = %q, want first 10 bytes preserved", got)
	}
}

func TestReadFileMissing(t *testing.T) {
	tool := NewReadFileTool(FilesConfig{Workspace: t.TempDir()})
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"nope.txt"}`)); err == nil {
		t.Error("Execute() on a missing file should fail")
	}
}

func TestFetchURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("page body"))
	}))
	defer server.Close()

	tool := NewFetchURLTool(FetchConfig{Client: server.Client()})
	got, err := tool.Execute(context.Background(), json.RawMessage(`{"url":"`+server.URL+`"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(got, "HTTP 200") {
		t.Errorf("Execute() = %q, want status line", got)
	}
	if !strings.Contains(got, "page body") {
		t.Errorf("Execute() = %q, want body", got)
	}
}

func TestFetchURLTruncatesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("y", 1000)))
	}))
	defer server.Close()

	tool := NewFetchURLTool(FetchConfig{Client: server.Client(), MaxBytes: 50})
	got, err := tool.Execute(context.Background(), json.RawMessage(`{"url":"`+server.URL+`"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasSuffix(got, "[truncated]") {
		t.Errorf("Execute() = %q, want truncation marker", got)
	}
}

func TestFetchURLRejectsNonHTTPScheme(t *testing.T) {
	tool := NewFetchURLTool(FetchConfig{})
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"url":"file:///etc/passwd"}`)); err == nil {
		t.Error("Execute() with file scheme should fail")
	}
}

func TestCurrentTime(t *testing.T) {
	tool := NewCurrentTimeTool()
	fixed := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	tool.now = func() time.Time { return fixed }

	got, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != fixed.Format(time.RFC1123) {
		t.Errorf("Execute() = %q, want %q", got, fixed.Format(time.RFC1123))
	}
}

func TestCurrentTimeUnknownTimezone(t *testing.T) {
	tool := NewCurrentTimeTool()
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"timezone":"Mars/Olympus"}`)); err == nil {
		t.Error("Execute() with unknown timezone should fail")
	}
}

func TestSchemasCompileAsObjects(t *testing.T) {
	schemas := map[string]json.RawMessage{
		"list_files":   NewListFilesTool(FilesConfig{}).Schema(),
		"read_file":    NewReadFileTool(FilesConfig{}).Schema(),
		"fetch_url":    NewFetchURLTool(FetchConfig{}).Schema(),
		"current_time": NewCurrentTimeTool().Schema(),
	}
	for name, raw := range schemas {
		var decoded map[string]any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Errorf("%s schema is not valid JSON: %v", name, err)
			continue
		}
		if decoded["type"] != "object" {
			t.Errorf("%s schema type = %v, want object", name, decoded["type"])
		}
	}
}
