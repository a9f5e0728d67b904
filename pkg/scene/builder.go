package scene

import "github.com/Faultbox/pcexport/pkg/math"

// Scene is an in-memory Provider. Format readers and tests build one and
// hand it to the exporter.
type Scene struct {
	nodes    []*Node
	selected []*Node
	nextID   ID
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{}
}

// NewID returns a fresh identity.
func (s *Scene) NewID() ID {
	s.nextID++
	return s.nextID
}

// AddNode appends an object with an identity transform and links it under
// parent when parent is not nil.
func (s *Scene) AddNode(name string, parent *Node) *Node {
	n := &Node{
		ID:     s.NewID(),
		Name:   name,
		Parent: parent,
		Local:  math.Identity(),
		Scale:  [3]float32{1, 1, 1},
	}
	if parent != nil {
		parent.Children = append(parent.Children, n)
	}
	s.nodes = append(s.nodes, n)
	return n
}

// NewMesh returns an empty mesh with a fresh identity.
func (s *Scene) NewMesh(name string) *Mesh {
	return &Mesh{ID: s.NewID(), Name: name}
}

// NewMaterial returns a material with the host defaults.
func (s *Scene) NewMaterial(name string) *Material {
	return &Material{
		ID:                s.NewID(),
		Name:              name,
		Diffuse:           [3]float32{0.8, 0.8, 0.8},
		Specular:          [3]float32{1, 1, 1},
		SpecularIntensity: 0.5,
		Alpha:             1,
		BackfaceCulling:   true,
	}
}

// Select marks objects as explicitly targeted.
func (s *Scene) Select(nodes ...*Node) {
	s.selected = append(s.selected, nodes...)
}

// Objects implements Provider.
func (s *Scene) Objects() []*Node {
	return s.nodes
}

// Selection implements Provider.
func (s *Scene) Selection() []*Node {
	return s.selected
}
