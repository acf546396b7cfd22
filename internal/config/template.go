package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/docsearch/configs"
)

// Template selects which commented example file WriteTemplate produces.
type Template int

const (
	// ProjectTemplate covers search and ranking settings.
	ProjectTemplate Template = iota
	// UserTemplate covers embeddings, storage and logging.
	UserTemplate
)

// Content returns the template text.
func (t Template) Content() string {
	if t == UserTemplate {
		return configs.UserConfigTemplate
	}
	return configs.ProjectConfigTemplate
}

// WriteTemplate writes the commented template to path, creating parent
// directories. The template values equal NewConfig.
func WriteTemplate(path string, t Template) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(t.Content()), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
