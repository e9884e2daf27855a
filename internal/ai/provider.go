package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
)

var ErrUnavailable = fmt.Errorf("ai provider not configured: %w", appErr.ErrUnavailable)

type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

type IProvider interface {
	Name() string
	Generate(ctx context.Context, model string, req *GenerateRequest) (string, error)
}

type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error)
}

type IGenerator interface {
	Generate(ctx context.Context, req *GenerateRequest) (string, error)
}

type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	ModelName() string
}

type generator struct {
	provider IProvider
	model    string
}

func NewGenerator(p IProvider, model string) IGenerator {
	return &generator{provider: p, model: model}
}

func (g *generator) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	return g.provider.Generate(ctx, g.model, req)
}

type embedder struct {
	provider IEmbedProvider
	model    string
}

func NewEmbedder(p IEmbedProvider, model string) IEmbedder {
	return &embedder{provider: p, model: model}
}

func (e *embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return e.provider.Embed(ctx, e.model, text, taskType)
}

func (e *embedder) ModelName() string {
	return e.model
}

// NewProvider builds a text generation provider by name. The set of providers
// is closed; configuration is passed as a JSON-compatible value.
func NewProvider(name string, args interface{}) (IProvider, error) {
	switch normalizeName(name) {
	case "":
		return nil, fmt.Errorf("ai.provider is required")
	case "gemini":
		return createGeminiProvider(args)
	case "openai":
		return createOpenAIProvider(args)
	case "openrouter":
		return createOpenRouterProvider(args)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	switch normalizeName(name) {
	case "":
		return nil, fmt.Errorf("ai.provider is required")
	case "gemini":
		return createGeminiEmbedProvider(args)
	case "openai":
		return createOpenAIEmbedProvider(args)
	default:
		return nil, fmt.Errorf("unsupported embed provider: %s", name)
	}
}

func IsUnavailable(err error) bool {
	return errors.Is(err, appErr.ErrUnavailable)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
