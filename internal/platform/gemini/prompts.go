package gemini

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/phrazzld/reelsmith-api/internal/generation"
)

//go:embed prompts/*.tmpl
var defaultPrompts embed.FS

const (
	scriptTemplate    = "script.tmpl"
	sceneTemplate     = "scene.tmpl"
	thumbnailTemplate = "thumbnail.tmpl"
)

// sceneData is the input of the scene prompt template.
type sceneData struct {
	Title  string
	Script string
}

// loadTemplates parses the embedded prompts, then lets files in dir
// override any of them by name.
func loadTemplates(dir string) (*template.Template, error) {
	tmpl, err := template.New("prompts").Option("missingkey=error").ParseFS(defaultPrompts, "prompts/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse embedded prompts: %v", generation.ErrInvalidConfig, err)
	}
	if dir == "" {
		return tmpl, nil
	}

	for _, name := range []string{scriptTemplate, sceneTemplate, thumbnailTemplate} {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template %s: %v",
				generation.ErrInvalidConfig, name, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("%w: failed to parse prompt template %s: %v",
				generation.ErrInvalidConfig, name, err)
		}
	}
	return tmpl, nil
}

func render(tmpl *template.Template, name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}
