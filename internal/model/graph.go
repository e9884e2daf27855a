package model

type GraphMetrics struct {
	InDegree    int     `json:"in_degree"`
	OutDegree   int     `json:"out_degree"`
	Betweenness float64 `json:"betweenness_centrality"`
	Clustering  float64 `json:"clustering_coefficient"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type GraphNode struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Metrics  GraphMetrics `json:"metrics"`
	Position Position     `json:"position"`
}

type Graph struct {
	Nodes []GraphNode        `json:"nodes"`
	Edges []RelationshipEdge `json:"edges"`
}
