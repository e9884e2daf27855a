package graph

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/xxxsen/docmind/internal/model"
)

const (
	defaultWidth      = 800.0
	defaultHeight     = 600.0
	defaultIterations = 50
	repulsion         = 5000.0
	springFactor      = 0.1
	damping           = 0.01
	minDistance       = 0.01
	canvasMargin      = 20.0
)

type LayoutOptions struct {
	Width      float64
	Height     float64
	Iterations int
	// Rand seeds the initial radii. nil uses a fixed seed so layouts are
	// reproducible.
	Rand *rand.Rand
}

// Positions is one immutable frame of the simulation.
type Positions map[string]model.Position

// Layout runs a force-directed simulation: nodes start on a circle of
// randomized radius, then each iteration maps the previous frame to a new one
// using pairwise repulsion (1/d²) and edge springs (d × strength × 0.1).
func Layout(nodeIDs []string, edges []model.RelationshipEdge, opts LayoutOptions) Positions {
	opts = opts.withDefaults()
	adj := newAdjacency(nodeIDs, edges, 0)
	springs := springEdges(adj.nodes, edges)
	frame := initialFrame(adj.nodes, opts)
	for i := 0; i < opts.Iterations; i++ {
		frame = step(frame, adj.nodes, springs, opts)
	}
	return frame
}

func (o LayoutOptions) withDefaults() LayoutOptions {
	if o.Width <= 0 {
		o.Width = defaultWidth
	}
	if o.Height <= 0 {
		o.Height = defaultHeight
	}
	if o.Iterations <= 0 {
		o.Iterations = defaultIterations
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(1, 2))
	}
	return o
}

type spring struct {
	a, b   string
	weight float64
}

func springEdges(nodes []string, edges []model.RelationshipEdge) []spring {
	in := make(map[string]bool, len(nodes))
	for _, id := range nodes {
		in[id] = true
	}
	out := make([]spring, 0, len(edges))
	for _, e := range edges {
		if e.Strength <= 0 || e.SourceID == e.TargetID || !in[e.SourceID] || !in[e.TargetID] {
			continue
		}
		out = append(out, spring{a: e.SourceID, b: e.TargetID, weight: e.Strength})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].a != out[j].a {
			return out[i].a < out[j].a
		}
		return out[i].b < out[j].b
	})
	return out
}

func initialFrame(nodes []string, opts LayoutOptions) Positions {
	cx, cy := opts.Width/2, opts.Height/2
	base := math.Min(opts.Width, opts.Height) / 3
	frame := make(Positions, len(nodes))
	for i, id := range nodes {
		angle := 2 * math.Pi * float64(i) / float64(len(nodes))
		radius := base * (0.5 + 0.5*opts.Rand.Float64())
		frame[id] = clampTo(model.Position{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
		}, opts)
	}
	return frame
}

// step reads prev only and returns a fresh frame.
func step(prev Positions, nodes []string, springs []spring, opts LayoutOptions) Positions {
	force := make(map[string]model.Position, len(nodes))
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			a, b := prev[nodes[i]], prev[nodes[j]]
			dx, dy, d := delta(a, b, i, j)
			f := repulsion / (d * d)
			fa, fb := force[nodes[i]], force[nodes[j]]
			fa.X -= f * dx / d
			fa.Y -= f * dy / d
			fb.X += f * dx / d
			fb.Y += f * dy / d
			force[nodes[i]], force[nodes[j]] = fa, fb
		}
	}
	for _, s := range springs {
		a, b := prev[s.a], prev[s.b]
		dx, dy, d := delta(a, b, 0, 1)
		f := d * s.weight * springFactor
		fa, fb := force[s.a], force[s.b]
		fa.X += f * dx / d
		fa.Y += f * dy / d
		fb.X -= f * dx / d
		fb.Y -= f * dy / d
		force[s.a], force[s.b] = fa, fb
	}
	next := make(Positions, len(prev))
	for _, id := range nodes {
		p, f := prev[id], force[id]
		next[id] = clampTo(model.Position{X: p.X + f.X*damping, Y: p.Y + f.Y*damping}, opts)
	}
	return next
}

// delta is the vector from a to b and its length. Coincident nodes are
// pushed apart along a direction derived from their indexes.
func delta(a, b model.Position, i, j int) (float64, float64, float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	d := math.Hypot(dx, dy)
	if d < minDistance {
		angle := float64(i*31+j) * 0.7
		dx, dy = math.Cos(angle)*minDistance, math.Sin(angle)*minDistance
		d = minDistance
	}
	return dx, dy, d
}

func clampTo(p model.Position, opts LayoutOptions) model.Position {
	mx := math.Min(canvasMargin, opts.Width/4)
	my := math.Min(canvasMargin, opts.Height/4)
	p.X = math.Max(mx, math.Min(opts.Width-mx, p.X))
	p.Y = math.Max(my, math.Min(opts.Height-my, p.Y))
	return p
}
