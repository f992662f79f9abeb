package generation

import (
	"context"
	"fmt"
	"strings"
)

// ScriptParams carries everything the script backend needs for one item.
// Values are copied from the item and the project settings at execution time.
type ScriptParams struct {
	Title           string
	Niche           string
	Tone            string
	Structure       string
	DurationMinutes int
	Template        string
}

// Validate checks that the parameters can produce a prompt.
func (p ScriptParams) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidParams)
	}
	if p.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidParams)
	}
	return nil
}

// ThumbnailParams describes a single thumbnail render.
type ThumbnailParams struct {
	Prompt string
	Style  string
	Title  string
}

// Validate checks that a prompt is present.
func (p ThumbnailParams) Validate() error {
	if strings.TrimSpace(p.Prompt) == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidParams)
	}
	return nil
}

// ScriptGenerator writes a video script.
type ScriptGenerator interface {
	// GenerateScript returns the script text. An empty string is a valid
	// return value from the backend; callers decide whether it counts as failure.
	GenerateScript(ctx context.Context, params ScriptParams) (string, error)
}

// ThumbnailGenerator renders thumbnails and derives scene prompts for them.
type ThumbnailGenerator interface {
	// GenerateThumbnail renders one image and returns it as a data URL.
	GenerateThumbnail(ctx context.Context, params ThumbnailParams) (string, error)

	// DeriveScenePrompt turns an item's title and script into an image prompt.
	DeriveScenePrompt(ctx context.Context, title, script string) (string, error)
}

// Backend is satisfied by adapters that serve both kinds of work.
type Backend interface {
	ScriptGenerator
	ThumbnailGenerator
}
