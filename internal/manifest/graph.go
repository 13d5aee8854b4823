package manifest

import "sort"

// Graph is the directed dependency graph between manifest nodes.
// Edges point from parent (dependency) to child (dependent).
type Graph struct {
	nodes    map[string]bool
	children map[string][]string
	parents  map[string][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]bool),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// AddNode registers a node id. Adding an existing id is a no-op.
func (g *Graph) AddNode(id string) {
	if !g.nodes[id] {
		g.nodes[id] = true
		g.children[id] = []string{}
		g.parents[id] = []string{}
	}
}

// AddEdge adds a directed edge from parent to child. Both nodes must exist;
// duplicate edges and self-loops are dropped.
func (g *Graph) AddEdge(parentID, childID string) {
	if !g.nodes[parentID] || !g.nodes[childID] || parentID == childID {
		return
	}
	if !contains(g.children[parentID], childID) {
		g.children[parentID] = append(g.children[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
}

// HasNode reports whether the id is in the graph.
func (g *Graph) HasNode(id string) bool {
	return g.nodes[id]
}

// Parents returns the direct dependencies of a node.
func (g *Graph) Parents(id string) []string {
	return g.parents[id]
}

// Children returns the direct dependents of a node.
func (g *Graph) Children(id string) []string {
	return g.children[id]
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, cs := range g.children {
		count += len(cs)
	}
	return count
}

// Upstream returns all transitive dependencies of a node, sorted.
func (g *Graph) Upstream(id string) []string {
	return g.traverse(id, g.parents)
}

// Downstream returns all transitive dependents of a node, sorted.
func (g *Graph) Downstream(id string) []string {
	return g.traverse(id, g.children)
}

func (g *Graph) traverse(id string, next map[string][]string) []string {
	seen := make(map[string]bool)

	var walk func(nodeID string)
	walk = func(nodeID string) {
		for _, n := range next[nodeID] {
			if !seen[n] {
				seen[n] = true
				walk(n)
			}
		}
	}
	walk(id)

	result := make([]string, 0, len(seen))
	for n := range seen {
		result = append(result, n)
	}
	sort.Strings(result)
	return result
}

func contains(slice []string, s string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}
