// Package graph computes per-document metrics, citation paths, strong
// clusters and a 2D layout over a relationship edge set.
package graph

import (
	"sort"

	"github.com/xxxsen/docmind/internal/model"
)

const DefaultMaxDepth = 3

// adjacency is the directed view of an edge set restricted to a node set.
// similar_to edges appear in both directions.
type adjacency struct {
	nodes []string
	out   map[string][]string
	in    map[string][]string
}

func newAdjacency(nodeIDs []string, edges []model.RelationshipEdge, minStrength float64) *adjacency {
	seen := make(map[string]struct{}, len(nodeIDs))
	nodes := make([]string, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	adj := &adjacency{
		nodes: nodes,
		out:   make(map[string][]string, len(nodes)),
		in:    make(map[string][]string, len(nodes)),
	}
	type arc struct{ from, to string }
	arcs := make(map[arc]struct{})
	add := func(from, to string) {
		if _, dup := arcs[arc{from, to}]; dup {
			return
		}
		arcs[arc{from, to}] = struct{}{}
		adj.out[from] = append(adj.out[from], to)
		adj.in[to] = append(adj.in[to], from)
	}
	for _, e := range edges {
		if e.Strength <= minStrength || e.SourceID == e.TargetID {
			continue
		}
		_, okS := seen[e.SourceID]
		_, okT := seen[e.TargetID]
		if !okS || !okT {
			continue
		}
		add(e.SourceID, e.TargetID)
		if !e.Directed() {
			add(e.TargetID, e.SourceID)
		}
	}
	for id := range adj.out {
		sort.Strings(adj.out[id])
	}
	for id := range adj.in {
		sort.Strings(adj.in[id])
	}
	return adj
}

// neighbors is the undirected neighbour set of id.
func (a *adjacency) neighbors(id string) map[string]struct{} {
	set := make(map[string]struct{}, len(a.out[id])+len(a.in[id]))
	for _, n := range a.out[id] {
		set[n] = struct{}{}
	}
	for _, n := range a.in[id] {
		set[n] = struct{}{}
	}
	return set
}

func (a *adjacency) connected(u, v string) bool {
	for _, n := range a.out[u] {
		if n == v {
			return true
		}
	}
	for _, n := range a.out[v] {
		if n == u {
			return true
		}
	}
	return false
}

// Analyze computes degree, betweenness and clustering for every node. Only
// edges with strength > 0 between nodes of the set count.
func Analyze(nodeIDs []string, edges []model.RelationshipEdge) map[string]model.GraphMetrics {
	adj := newAdjacency(nodeIDs, edges, 0)
	betweenness := approximateBetweenness(adj)
	out := make(map[string]model.GraphMetrics, len(adj.nodes))
	for _, id := range adj.nodes {
		out[id] = model.GraphMetrics{
			InDegree:    len(adj.in[id]),
			OutDegree:   len(adj.out[id]),
			Betweenness: betweenness[id],
			Clustering:  clustering(adj, id),
		}
	}
	return out
}

// approximateBetweenness approximates betweenness centrality: for each ordered pair it
// follows only the first shortest path BFS finds (neighbours in id order) and
// credits the interior nodes. Counts are normalized by the maximum, so the
// top node scores exactly 1, or every node 0 when no path has an interior.
// This deliberately differs from Brandes' all-shortest-paths algorithm.
func approximateBetweenness(adj *adjacency) map[string]float64 {
	counts := make(map[string]float64, len(adj.nodes))
	for _, id := range adj.nodes {
		counts[id] = 0
	}
	for _, s := range adj.nodes {
		parent := bfsTree(adj, s)
		for _, t := range adj.nodes {
			if t == s {
				continue
			}
			if _, reached := parent[t]; !reached {
				continue
			}
			// walk back from t; every node strictly between s and t is interior
			for n := parent[t]; n != s; n = parent[n] {
				counts[n]++
			}
		}
	}
	var max float64
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	if max == 0 {
		return counts
	}
	for id := range counts {
		counts[id] /= max
	}
	return counts
}

// bfsTree maps every node reachable from s to its BFS parent.
func bfsTree(adj *adjacency, s string) map[string]string {
	parent := map[string]string{s: s}
	queue := []string{s}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range adj.out[u] {
			if _, seen := parent[v]; seen {
				continue
			}
			parent[v] = u
			queue = append(queue, v)
		}
	}
	return parent
}

func clustering(adj *adjacency, id string) float64 {
	set := adj.neighbors(id)
	delete(set, id)
	k := len(set)
	if k < 2 {
		return 0
	}
	neighbors := make([]string, 0, k)
	for n := range set {
		neighbors = append(neighbors, n)
	}
	links := 0
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			if adj.connected(neighbors[i], neighbors[j]) {
				links++
			}
		}
	}
	return 2 * float64(links) / float64(k*(k-1))
}

// FindPaths enumerates every simple path from src to dst of at most maxDepth
// hops, shortest first. maxDepth <= 0 means DefaultMaxDepth.
func FindPaths(edges []model.RelationshipEdge, src, dst string, maxDepth int) [][]string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if src == dst {
		return [][]string{}
	}
	adj := newAdjacency(edgeNodes(edges), edges, 0)
	paths := make([][]string, 0)
	queue := [][]string{{src}}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if len(path)-1 >= maxDepth {
			continue
		}
		last := path[len(path)-1]
		for _, next := range adj.out[last] {
			if contains(path, next) {
				continue
			}
			extended := make([]string, len(path)+1)
			copy(extended, path)
			extended[len(path)] = next
			if next == dst {
				paths = append(paths, extended)
				continue
			}
			queue = append(queue, extended)
		}
	}
	return paths
}

// StrongClusters returns the connected components of size > 1 formed by
// edges stronger than threshold, ignoring direction.
func StrongClusters(nodeIDs []string, edges []model.RelationshipEdge, threshold float64) [][]string {
	adj := newAdjacency(nodeIDs, edges, threshold)
	visited := make(map[string]bool, len(adj.nodes))
	clusters := make([][]string, 0)
	for _, id := range adj.nodes {
		if visited[id] {
			continue
		}
		var component []string
		stack := []string{id}
		visited[id] = true
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, u)
			for n := range adj.neighbors(u) {
				if !visited[n] {
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}
		if len(component) > 1 {
			sort.Strings(component)
			clusters = append(clusters, component)
		}
	}
	return clusters
}

func edgeNodes(edges []model.RelationshipEdge) []string {
	ids := make([]string, 0, len(edges)*2)
	for _, e := range edges {
		ids = append(ids, e.SourceID, e.TargetID)
	}
	return ids
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
