package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/phrazzld/reelsmith-api/internal/config"
	"github.com/phrazzld/reelsmith-api/internal/generation"
	"google.golang.org/genai"
)

// modelsAPI is the subset of *genai.Models the generator calls.
type modelsAPI interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
	GenerateImages(
		ctx context.Context,
		model string,
		prompt string,
		config *genai.GenerateImagesConfig,
	) (*genai.GenerateImagesResponse, error)
}

// Generator implements generation.Backend against the Gemini API.
type Generator struct {
	logger     *slog.Logger
	models     modelsAPI
	textModel  string
	imageModel string
	templates  *template.Template

	maxRetries int
	baseDelay  time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

var _ generation.Backend = (*Generator)(nil)

// New creates a Generator with a live Gemini client.
func New(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newGenerator(logger, cfg, client.Models)
}

func newGenerator(logger *slog.Logger, cfg config.LLMConfig, models modelsAPI) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.TextModel == "" || cfg.ImageModel == "" {
		return nil, fmt.Errorf("%w: text and image model names are required", generation.ErrInvalidConfig)
	}

	templates, err := loadTemplates(cfg.PromptTemplateDir)
	if err != nil {
		return nil, err
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		logger.Warn("Invalid max retries value, using default", "max_retries", defaultMaxRetries)
		maxRetries = defaultMaxRetries
	}
	baseDelay := time.Duration(cfg.RetryDelaySeconds) * time.Second
	if baseDelay <= 0 {
		baseDelay = defaultRetryDelay
	}

	return &Generator{
		logger:     logger.With("component", "gemini"),
		models:     models,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		templates:  templates,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (g *Generator) jitter() float64 {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return g.rng.Float64()
}

// GenerateScript writes a script for one item.
func (g *Generator) GenerateScript(ctx context.Context, params generation.ScriptParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	prompt, err := render(g.templates, scriptTemplate, params)
	if err != nil {
		return "", err
	}

	script, err := g.generateText(ctx, "script", prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", generation.ErrGenerationFailed, err)
	}

	g.logger.InfoContext(ctx, "Script generated",
		"title_length", len(params.Title),
		"script_length", len(script))
	return script, nil
}

// DeriveScenePrompt asks the text model for an image description.
func (g *Generator) DeriveScenePrompt(ctx context.Context, title, script string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("%w: title is required", generation.ErrInvalidParams)
	}
	prompt, err := render(g.templates, sceneTemplate, sceneData{Title: title, Script: script})
	if err != nil {
		return "", err
	}

	scene, err := g.generateText(ctx, "scene_prompt", prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", generation.ErrGenerationFailed, err)
	}
	if scene == "" {
		return "", fmt.Errorf("%w: empty scene prompt", generation.ErrInvalidResponse)
	}
	return scene, nil
}

// GenerateThumbnail renders one image and returns it as a data URL.
func (g *Generator) GenerateThumbnail(ctx context.Context, params generation.ThumbnailParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	prompt, err := render(g.templates, thumbnailTemplate, params)
	if err != nil {
		return "", err
	}

	var image *genai.Image
	err = g.withRetry(ctx, "thumbnail", func(ctx context.Context) error {
		resp, err := g.models.GenerateImages(ctx, g.imageModel, prompt, nil)
		if err != nil {
			return err
		}
		image, err = firstImage(resp)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", generation.ErrGenerationFailed, err)
	}

	mime := image.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image.ImageBytes), nil
}

// generateText runs one text prompt through the retry loop. The returned
// string is trimmed and may be empty.
func (g *Generator) generateText(ctx context.Context, op, prompt string) (string, error) {
	var text string
	err := g.withRetry(ctx, op, func(ctx context.Context) error {
		resp, err := g.models.GenerateContent(ctx, g.textModel, genai.Text(prompt), nil)
		if err != nil {
			return err
		}
		text, err = responseText(resp)
		return err
	})
	return strings.TrimSpace(text), err
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

func firstImage(resp *genai.GenerateImagesResponse) (*genai.Image, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	for _, generated := range resp.GeneratedImages {
		if generated == nil {
			continue
		}
		if generated.Image != nil && len(generated.Image.ImageBytes) > 0 {
			return generated.Image, nil
		}
		if generated.RAIFilteredReason != "" {
			return nil, fmt.Errorf("%w: %s", generation.ErrContentBlocked, generated.RAIFilteredReason)
		}
	}
	return nil, fmt.Errorf("%w: no image generated", generation.ErrInvalidResponse)
}
