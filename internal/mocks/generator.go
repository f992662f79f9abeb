package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/phrazzld/reelsmith-api/internal/generation"
)

// MockGenerator implements generation.Backend for testing
type MockGenerator struct {
	GenerateScriptFn    func(ctx context.Context, params generation.ScriptParams) (string, error)
	GenerateThumbnailFn func(ctx context.Context, params generation.ThumbnailParams) (string, error)
	DeriveScenePromptFn func(ctx context.Context, title, script string) (string, error)

	mu              sync.Mutex
	scriptCalls     []generation.ScriptParams
	thumbnailCalls  []generation.ThumbnailParams
	scenePromptCall int
}

var _ generation.Backend = (*MockGenerator)(nil)

// GenerateScript implements generation.ScriptGenerator. Without a custom
// function it returns a script derived from the title.
func (m *MockGenerator) GenerateScript(ctx context.Context, params generation.ScriptParams) (string, error) {
	m.mu.Lock()
	m.scriptCalls = append(m.scriptCalls, params)
	m.mu.Unlock()

	if m.GenerateScriptFn != nil {
		return m.GenerateScriptFn(ctx, params)
	}
	return fmt.Sprintf("Script for %s", params.Title), nil
}

// GenerateThumbnail implements generation.ThumbnailGenerator. Without a
// custom function it returns a numbered placeholder data URL.
func (m *MockGenerator) GenerateThumbnail(ctx context.Context, params generation.ThumbnailParams) (string, error) {
	m.mu.Lock()
	m.thumbnailCalls = append(m.thumbnailCalls, params)
	n := len(m.thumbnailCalls)
	m.mu.Unlock()

	if m.GenerateThumbnailFn != nil {
		return m.GenerateThumbnailFn(ctx, params)
	}
	return fmt.Sprintf("data:image/png;base64,thumb%d", n), nil
}

// DeriveScenePrompt implements generation.ThumbnailGenerator.
func (m *MockGenerator) DeriveScenePrompt(ctx context.Context, title, script string) (string, error) {
	m.mu.Lock()
	m.scenePromptCall++
	m.mu.Unlock()

	if m.DeriveScenePromptFn != nil {
		return m.DeriveScenePromptFn(ctx, title, script)
	}
	return "scene for " + title, nil
}

// ScriptCalls returns the parameters of every GenerateScript call.
func (m *MockGenerator) ScriptCalls() []generation.ScriptParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.ScriptParams(nil), m.scriptCalls...)
}

// ThumbnailCalls returns the parameters of every GenerateThumbnail call.
func (m *MockGenerator) ThumbnailCalls() []generation.ThumbnailParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.ThumbnailParams(nil), m.thumbnailCalls...)
}

// ScenePromptCalls returns how many times DeriveScenePrompt was called.
func (m *MockGenerator) ScenePromptCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scenePromptCall
}
