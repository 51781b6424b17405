package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Path inputs are resolved against the project directory and must stay
// inside it; the model never touches files outside the manuscript.

type readFileTool struct {
	workDir string
}

// NewReadFileTool returns the read_file tool.
func NewReadFileTool(workDir string) Tool {
	return &readFileTool{workDir: workDir}
}

func (t *readFileTool) ID() string { return "read_file" }

func (t *readFileTool) Description() string {
	return "Read a manuscript file. Returns the full file contents."
}

func (t *readFileTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "File path relative to the project directory"}
		},
		"required": ["path"]
	}`)
}

func (t *readFileTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	path, err := resolvePath(t.workDir, args.Path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args.Path, err)
	}
	return string(data), nil
}

type writeFileTool struct {
	workDir string
}

// NewWriteFileTool returns the write_file tool.
func NewWriteFileTool(workDir string) Tool {
	return &writeFileTool{workDir: workDir}
}

func (t *writeFileTool) ID() string { return "write_file" }

func (t *writeFileTool) Description() string {
	return "Write a manuscript file, replacing its contents. Parent directories are created."
}

func (t *writeFileTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "File path relative to the project directory"},
			"content": {"type": "string", "description": "New file contents"}
		},
		"required": ["path", "content"]
	}`)
}

func (t *writeFileTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	path, err := resolvePath(t.workDir, args.Path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(args.Content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", args.Path, err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(args.Content), args.Path), nil
}

type listFilesTool struct {
	workDir string
}

// NewListFilesTool returns the list_files tool.
func NewListFilesTool(workDir string) Tool {
	return &listFilesTool{workDir: workDir}
}

func (t *listFilesTool) ID() string { return "list_files" }

func (t *listFilesTool) Description() string {
	return "List the files in the project directory, one relative path per line."
}

func (t *listFilesTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {}
	}`)
}

func (t *listFilesTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var files []string
	err := filepath.WalkDir(t.workDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != t.workDir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(t.workDir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to list files: %w", err)
	}
	sort.Strings(files)
	return strings.Join(files, "\n"), nil
}

// resolvePath joins a relative path to the project directory, rejecting
// escapes.
func resolvePath(workDir, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path must be relative: %s", rel)
	}
	path := filepath.Join(workDir, rel)
	if path != workDir && !strings.HasPrefix(path, workDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the project directory: %s", rel)
	}
	return path, nil
}
