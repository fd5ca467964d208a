package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemTool performs file operations rooted in a run's workspace.
// Paths resolving outside the workspace are rejected before any I/O.
type FilesystemTool struct {
	root string
}

// NewFilesystemTool creates a filesystem tool rooted at the given directory.
func NewFilesystemTool(root string) *FilesystemTool {
	return &FilesystemTool{root: root}
}

// Name returns "filesystem".
func (t *FilesystemTool) Name() string { return "filesystem" }

// ForWorkspace returns a copy of the tool rooted at the given directory.
func (t *FilesystemTool) ForWorkspace(dir string) Tool {
	return NewFilesystemTool(dir)
}

// Operations returns the supported filesystem operations.
func (t *FilesystemTool) Operations() []Operation {
	return []Operation{
		{Name: "read_file"},
		{Name: "write_file"},
		{Name: "list_dir"},
		{Name: "mkdir"},
	}
}

// Invoke performs one filesystem operation inside the workspace.
func (t *FilesystemTool) Invoke(ctx context.Context, operation string, params map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Tool: t.Name(), Operation: operation, Err: err}
	}
	if !hasOperation(t.Operations(), operation) {
		return nil, &Error{Tool: t.Name(), Operation: operation, Err: ErrUnknownOperation}
	}

	rel, _ := params["path"].(string)
	path, err := t.resolve(rel)
	if err != nil {
		return nil, &Error{Tool: t.Name(), Operation: operation, Err: err}
	}

	switch operation {
	case "read_file":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &Error{Tool: t.Name(), Operation: operation, Err: err}
		}
		return map[string]any{"content": string(data), "path": path}, nil

	case "write_file":
		content, _ := params["content"].(string)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, &Error{Tool: t.Name(), Operation: operation, Err: err}
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return nil, &Error{Tool: t.Name(), Operation: operation, Err: err}
		}
		return map[string]any{"path": path, "bytes": len(content)}, nil

	case "list_dir":
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, &Error{Tool: t.Name(), Operation: operation, Err: err}
		}
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		return map[string]any{"entries": names, "path": path}, nil

	case "mkdir":
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, &Error{Tool: t.Name(), Operation: operation, Err: err}
		}
		return map[string]any{"path": path}, nil
	}

	return nil, &Error{Tool: t.Name(), Operation: operation, Err: ErrUnknownOperation}
}

// resolve joins rel onto the workspace root and rejects escapes.
func (t *FilesystemTool) resolve(rel string) (string, error) {
	if rel == "" {
		return t.root, nil
	}
	path := filepath.Clean(filepath.Join(t.root, rel))
	if path != t.root && !strings.HasPrefix(path, t.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes workspace", rel)
	}
	return path, nil
}

var (
	_ Tool   = (*FilesystemTool)(nil)
	_ Rooted = (*FilesystemTool)(nil)
)
