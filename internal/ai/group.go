package ai

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Route is one configured provider endpoint. Groups try routes in order and
// return the first success.
type Route[T any] struct {
	Name   string
	Client T
}

func tryRoutes[T any, R any](ctx context.Context, kind string, routes []Route[T], call func(T) (R, error)) (R, error) {
	var zero R
	var lastErr error
	for i, route := range routes {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		res, err := call(route.Client)
		if err == nil {
			if i > 0 {
				logutil.GetLogger(ctx).Info("served by fallback route", zap.String("kind", kind), zap.String("route", route.Name))
			}
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("ai route failed", zap.String("kind", kind),
			zap.Int("index", i), zap.String("route", route.Name), zap.Error(err))
	}
	if lastErr == nil {
		return zero, ErrUnavailable
	}
	return zero, lastErr
}

type generatorGroup struct {
	routes []Route[IGenerator]
}

// NewGeneratorGroup returns nil without routes and the generator itself for a
// single route.
func NewGeneratorGroup(routes []Route[IGenerator]) IGenerator {
	routes = compact(routes, func(g IGenerator) bool { return g != nil })
	switch len(routes) {
	case 0:
		return nil
	case 1:
		return routes[0].Client
	}
	return &generatorGroup{routes: routes}
}

func (g *generatorGroup) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	return tryRoutes(ctx, "generate", g.routes, func(gen IGenerator) (string, error) {
		return gen.Generate(ctx, req)
	})
}

type embedderGroup struct {
	routes []Route[IEmbedder]
}

// NewEmbedderGroup chains embedders. Every route keeps its own caches, so
// cached vectors are never shared across models.
func NewEmbedderGroup(routes []Route[IEmbedder]) IEmbedder {
	routes = compact(routes, func(e IEmbedder) bool { return e != nil })
	switch len(routes) {
	case 0:
		return nil
	case 1:
		return routes[0].Client
	}
	return &embedderGroup{routes: routes}
}

func (g *embedderGroup) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return tryRoutes(ctx, "embed", g.routes, func(e IEmbedder) ([]float32, error) {
		return e.Embed(ctx, text, taskType)
	})
}

// ModelName reports the primary route.
func (g *embedderGroup) ModelName() string {
	return g.routes[0].Client.ModelName()
}

func compact[T any](routes []Route[T], keep func(T) bool) []Route[T] {
	out := make([]Route[T], 0, len(routes))
	for _, r := range routes {
		if keep(r.Client) {
			out = append(out, r)
		}
	}
	return out
}
