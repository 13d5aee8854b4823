// Package manifest indexes the dbt manifest artifact by node unique id.
// It exposes lookups for compiled SQL, file paths, and relation names, plus
// the node dependency graph used by the lineage command.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// ResourceType classifies a manifest node.
type ResourceType string

const (
	ResourceModel  ResourceType = "model"
	ResourceSource ResourceType = "source"
)

// ModelNode is one node from the manifest, immutable once loaded.
type ModelNode struct {
	// UniqueID is the manifest identifier (e.g. "model.my_project.stg_users")
	UniqueID string
	// Name is the bare model name (e.g. "stg_users")
	Name string
	// PackageName is the dbt package that owns the node
	PackageName string
	// ResourceType is "model" or "source"
	ResourceType ResourceType
	// FilePath is the original file path of the node within the project
	FilePath string
	// RelationName is the fully qualified relation the node materializes into
	RelationName string
	// CompiledSQL is the compiled query text, if the node was compiled
	CompiledSQL string
	// DependsOn lists the unique ids of upstream nodes
	DependsOn []string
}

// UnknownModelError is returned when a node id cannot be resolved.
type UnknownModelError struct {
	UniqueID string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown manifest node: %s", e.UniqueID)
}

// Index is a read-only view over the manifest nodes.
type Index struct {
	projectName string
	nodes       map[string]*ModelNode
	order       []string
}

// rawManifest mirrors the subset of manifest.json this tool consumes.
type rawManifest struct {
	Metadata struct {
		ProjectName string `json:"project_name"`
	} `json:"metadata"`
	Nodes   map[string]rawNode `json:"nodes"`
	Sources map[string]rawNode `json:"sources"`
}

type rawNode struct {
	UniqueID         string `json:"unique_id"`
	Name             string `json:"name"`
	PackageName      string `json:"package_name"`
	ResourceType     string `json:"resource_type"`
	OriginalFilePath string `json:"original_file_path"`
	Path             string `json:"path"`
	RelationName     string `json:"relation_name"`
	Database         string `json:"database"`
	Schema           string `json:"schema"`
	Alias            string `json:"alias"`
	// compiled_code supersedes compiled_sql in newer dbt versions
	CompiledCode string `json:"compiled_code"`
	CompiledSQL  string `json:"compiled_sql"`
	DependsOn    struct {
		Nodes []string `json:"nodes"`
	} `json:"depends_on"`
}

// Load reads and indexes a manifest.json file.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse indexes raw manifest JSON bytes.
func Parse(data []byte) (*Index, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse manifest JSON: %w", err)
	}

	idx := &Index{
		projectName: raw.Metadata.ProjectName,
		nodes:       make(map[string]*ModelNode),
	}

	add := func(id string, rn rawNode) {
		rt := ResourceType(rn.ResourceType)
		if rt != ResourceModel && rt != ResourceSource {
			return
		}
		node := &ModelNode{
			UniqueID:     id,
			Name:         rn.Name,
			PackageName:  rn.PackageName,
			ResourceType: rt,
			FilePath:     rn.OriginalFilePath,
			RelationName: rn.RelationName,
			CompiledSQL:  rn.CompiledCode,
			DependsOn:    rn.DependsOn.Nodes,
		}
		if node.FilePath == "" {
			node.FilePath = rn.Path
		}
		if node.CompiledSQL == "" {
			node.CompiledSQL = rn.CompiledSQL
		}
		if node.RelationName == "" {
			node.RelationName = qualifiedRelation(rn)
		}
		idx.nodes[id] = node
		idx.order = append(idx.order, id)
	}

	// Map iteration order is randomized; index nodes in sorted id order so
	// name resolution and graph traversal are stable across parses.
	for _, id := range sortedKeys(raw.Nodes) {
		add(id, raw.Nodes[id])
	}
	for _, id := range sortedKeys(raw.Sources) {
		add(id, raw.Sources[id])
	}

	return idx, nil
}

func sortedKeys(m map[string]rawNode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// qualifiedRelation reconstructs database.schema.alias when the manifest
// does not carry relation_name (older dbt versions omit it for sources).
func qualifiedRelation(rn rawNode) string {
	name := rn.Alias
	if name == "" {
		name = rn.Name
	}
	parts := make([]string, 0, 3)
	if rn.Database != "" {
		parts = append(parts, rn.Database)
	}
	if rn.Schema != "" {
		parts = append(parts, rn.Schema)
	}
	parts = append(parts, name)
	return strings.Join(parts, ".")
}

// ProjectName returns the project name from the manifest metadata.
func (idx *Index) ProjectName() string {
	return idx.projectName
}

// Resolve returns the node for the given unique id.
func (idx *Index) Resolve(uniqueID string) (*ModelNode, error) {
	node, ok := idx.nodes[uniqueID]
	if !ok {
		return nil, &UnknownModelError{UniqueID: uniqueID}
	}
	return node, nil
}

// NodeCount returns the number of indexed nodes.
func (idx *Index) NodeCount() int {
	return len(idx.nodes)
}

// refPattern matches ref('model') and ref('package', 'model').
var refPattern = regexp.MustCompile(`ref\(\s*(?:['"][\w.]+['"]\s*,\s*)?['"]([\w.]+)['"]\s*\)`)

// ResolveRef resolves a dbt ref() expression (e.g. "ref('stg_users')") to a
// model node. When two packages declare a model with the same name, the node
// from the manifest's own project wins.
func (idx *Index) ResolveRef(refExpr string) (*ModelNode, error) {
	m := refPattern.FindStringSubmatch(refExpr)
	if m == nil {
		return nil, fmt.Errorf("cannot parse model reference %q", refExpr)
	}
	return idx.ResolveModelName(m[1])
}

// ResolveModelName finds the model node with the given bare name.
func (idx *Index) ResolveModelName(name string) (*ModelNode, error) {
	var fallback *ModelNode
	for _, id := range idx.order {
		node := idx.nodes[id]
		if node.ResourceType != ResourceModel || node.Name != name {
			continue
		}
		if idx.projectName != "" && node.PackageName == idx.projectName {
			return node, nil
		}
		if fallback == nil {
			fallback = node
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, &UnknownModelError{UniqueID: name}
}

// Graph builds the dependency graph over all indexed nodes.
func (idx *Index) Graph() *Graph {
	g := NewGraph()
	for _, id := range idx.order {
		g.AddNode(id)
	}
	for _, id := range idx.order {
		for _, parent := range idx.nodes[id].DependsOn {
			if _, ok := idx.nodes[parent]; !ok {
				// Upstream node outside the model/source subset (e.g. a test)
				g.AddNode(parent)
			}
			g.AddEdge(parent, id)
		}
	}
	return g
}
