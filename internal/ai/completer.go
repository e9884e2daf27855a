package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
)

type CompletionOptions struct {
	Temperature float32
	MaxTokens   int
}

// CompletionClient is the prompt-in/text-out collaborator used by the
// relationship detector, the reranker and the insight synthesizer. Callers treat
// the returned text as untrusted.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (string, error)
}

type CompleterConfig struct {
	Timeout       int
	MaxInputChars int
}

type Completer struct {
	gen IGenerator
	cfg CompleterConfig
}

func NewCompleter(gen IGenerator, cfg CompleterConfig) *Completer {
	return &Completer{gen: gen, cfg: cfg}
}

func (c *Completer) Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (string, error) {
	if c == nil || c.gen == nil {
		return "", ErrUnavailable
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.Timeout)*time.Second)
		defer cancel()
	}
	if max := c.cfg.MaxInputChars; max > 0 && len(userPrompt) > max {
		logutil.GetLogger(ctx).Debug("truncating completion prompt", zap.Int("size", len(userPrompt)), zap.Int("max", max))
		userPrompt = truncateUTF8(userPrompt, max)
	}
	resp, err := c.gen.Generate(ctx, &GenerateRequest{
		System:      systemPrompt,
		Prompt:      userPrompt,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		if IsUnavailable(err) {
			return "", err
		}
		return "", fmt.Errorf("completion failed: %w: %w", appErr.ErrUnavailable, err)
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response: %w", appErr.ErrMalformedResponse)
	}
	return text, nil
}

func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
