package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// ModelVersion is the model format version written to every document.
const ModelVersion = 2

// MeshInstance links a node to a mesh.
type MeshInstance struct {
	Node int `json:"node"`
	Mesh int `json:"mesh"`
}

// Model is the body of the main document.
type Model struct {
	Version       int            `json:"version"`
	Nodes         []NodeRecord   `json:"nodes"`
	Parents       []int          `json:"parents"`
	Skins         []any          `json:"skins"`
	Vertices      []VertexBuffer `json:"vertices"`
	Meshes        []*MeshRecord  `json:"meshes"`
	MeshInstances []MeshInstance `json:"meshInstances"`
}

// Document is the main document as written to disk.
type Document struct {
	Model Model `json:"model"`
}

// MappingEntry points one mesh instance at its material file.
type MappingEntry struct {
	Path string `json:"path"`
}

// Mapping is the mesh instance to material document. Entry i belongs to
// meshInstances[i] of the main document.
type Mapping struct {
	Mapping []MappingEntry `json:"mapping"`
}

// Assemble builds the main document from flattened parts. The root node
// and its -1 parent are prepended; instances link to nodes 1..n in order.
func Assemble(nodes []NodeRecord, parents []int, instances []Instance,
	buffers []VertexBuffer, meshes []*MeshRecord) *Document {
	m := Model{
		Version:       ModelVersion,
		Nodes:         append([]NodeRecord{rootNode}, nodes...),
		Parents:       append([]int{-1}, parents...),
		Skins:         []any{},
		Vertices:      buffers,
		Meshes:        meshes,
		MeshInstances: make([]MeshInstance, len(instances)),
	}
	if m.Vertices == nil {
		m.Vertices = []VertexBuffer{}
	}
	if m.Meshes == nil {
		m.Meshes = []*MeshRecord{}
	}
	for i, inst := range instances {
		m.MeshInstances[i] = MeshInstance{Node: i + 1, Mesh: inst.Mesh}
	}
	return &Document{Model: m}
}

// writeJSON encodes v to path, indented when pretty is set.
func writeJSON(path string, v any, pretty bool) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadDocument loads a main document written by the exporter.
func ReadDocument(path string) (*Document, error) {
	var doc Document
	if err := readJSON(path, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadMapping loads a mapping document written by the exporter.
func ReadMapping(path string) (*Mapping, error) {
	var m Mapping
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
