package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
	"github.com/Billhebert/chatIAS-sub000/internal/tool"
)

// FileReader reads a file from disk, bounded by its ToolConstraints
// (AllowedPaths/AllowedExtensions/NoFileSystem) (spec §4.2, §8 scenario 6).
type FileReader struct {
	constraints config.ToolConstraints
}

// NewFileReaderFactory builds a FileReader honoring the ToolConfig's
// constraints at construction time, so a misconfigured tool (e.g.
// no_file_system=true) fails the way every other tool category does.
func NewFileReaderFactory() tool.Factory {
	return func(cfg *config.ToolConfig) (tool.Tool, error) {
		if cfg.Constraints.NoFileSystem {
			return nil, fmt.Errorf("file_reader tool %q is configured with no_file_system: true", cfg.ID)
		}
		return &FileReader{constraints: cfg.Constraints}, nil
	}
}

func (f *FileReader) Execute(_ context.Context, action string, params map[string]any) (tool.Result, error) {
	if action != "" && action != "read" {
		return tool.Result{OK: false, Error: fmt.Errorf("file_reader does not support action %q", action)}, nil
	}

	path, ok := params["path"].(string)
	if !ok || path == "" {
		return tool.Result{OK: false, Error: fmt.Errorf("file_reader requires a string 'path' param")}, nil
	}

	if err := f.checkAllowed(path); err != nil {
		return tool.Result{OK: false, Error: err}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tool.Result{OK: false, Error: fmt.Errorf("reading %q: %w", path, err)}, nil
	}

	return tool.Result{OK: true, Data: map[string]any{
		"path":    path,
		"content": string(data),
		"bytes":   len(data),
	}}, nil
}

func (f *FileReader) checkAllowed(path string) error {
	if len(f.constraints.AllowedExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		allowed := false
		for _, e := range f.constraints.AllowedExtensions {
			if strings.ToLower(e) == ext {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("extension %q is not permitted for this tool", ext)
		}
	}

	if len(f.constraints.AllowedPaths) == 0 {
		return nil
	}

	clean := filepath.Clean(path)
	for _, prefix := range f.constraints.AllowedPaths {
		if clean == prefix || strings.HasPrefix(clean, filepath.Clean(prefix)+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("path %q is outside the tool's allowed_paths", path)
}
