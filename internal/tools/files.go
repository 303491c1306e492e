package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// FilesConfig controls the filesystem tools.
type FilesConfig struct {
	// Workspace is the directory tools may access. Default: current directory.
	Workspace string

	// MaxReadBytes caps read_file output. Default: 200000.
	MaxReadBytes int
}

func (c FilesConfig) maxRead() int {
	if c.MaxReadBytes <= 0 {
		return 200000
	}
	return c.MaxReadBytes
}

type listFilesInput struct {
	Path string `json:"path,omitempty" jsonschema:"description=Directory to list relative to the workspace (default: workspace root)"`
}

// ListFilesTool lists directory entries inside the workspace.
type ListFilesTool struct {
	resolver resolver
}

// NewListFilesTool creates a list tool scoped to the workspace.
func NewListFilesTool(config FilesConfig) *ListFilesTool {
	return &ListFilesTool{resolver: resolver{root: config.Workspace}}
}

func (t *ListFilesTool) Name() string { return "list_files" }

func (t *ListFilesTool) Description() string {
	return "List files and directories at a path inside the workspace."
}

func (t *ListFilesTool) Schema() json.RawMessage {
	return reflectSchema(&listFilesInput{})
}

func (t *ListFilesTool) Execute(ctx context.Context, params json.RawMessage) (string, error) {
	var input listFilesInput
	if err := json.Unmarshal(params, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}
	if input.Path == "" {
		input.Path = "."
	}

	resolved, err := t.resolver.resolve(input.Path)
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return "", fmt.Errorf("read directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		return "(empty directory)", nil
	}
	return strings.Join(names, "\n"), nil
}

type readFileInput struct {
	Path     string `json:"path" jsonschema:"description=File to read relative to the workspace"`
	MaxBytes int    `json:"max_bytes,omitempty" jsonschema:"description=Maximum bytes to return (capped by the tool default)"`
}

// ReadFileTool reads a file inside the workspace with a byte limit.
type ReadFileTool struct {
	resolver resolver
	maxBytes int
}

// NewReadFileTool creates a read tool scoped to the workspace.
func NewReadFileTool(config FilesConfig) *ReadFileTool {
	return &ReadFileTool{
		resolver: resolver{root: config.Workspace},
		maxBytes: config.maxRead(),
	}
}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read the contents of a file inside the workspace."
}

func (t *ReadFileTool) Schema() json.RawMessage {
	return reflectSchema(&readFileInput{})
}

func (t *ReadFileTool) Execute(ctx context.Context, params json.RawMessage) (string, error) {
	var input readFileInput
	if err := json.Unmarshal(params, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}

	resolved, err := t.resolver.resolve(input.Path)
	if err != nil {
		return "", err
	}

	file, err := os.Open(resolved)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	limit := t.maxBytes
	if input.MaxBytes > 0 && input.MaxBytes < limit {
		limit = input.MaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(file, int64(limit)+1))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if len(data) > limit {
		return string(data[:limit]) + "\n[truncated]", nil
	}
	return string(data), nil
}
