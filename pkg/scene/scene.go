// Package scene models the host scene graph the exporter reads from. The
// exporter never mutates these values; providers hand out a snapshot that
// stays fixed for the duration of a run.
package scene

import "github.com/Faultbox/pcexport/pkg/math"

// ID is an opaque identity, stable for the lifetime of a Provider. Two values
// with the same ID are the same host object even if their names differ.
type ID uint64

// Provider is the read-only view of a host scene.
type Provider interface {
	// Objects returns every object of the scene in scene order.
	Objects() []*Node
	// Selection returns the explicitly targeted objects, possibly none.
	Selection() []*Node
}

// Node is a transformable scene object.
type Node struct {
	ID       ID
	Name     string
	Parent   *Node
	Children []*Node
	Mesh     *Mesh

	// Local is the transform relative to Parent.
	Local math.Mat4
	// Scale is the object's own scale property. It can differ from the
	// scale encoded in Local when a parent is scaled non-uniformly.
	Scale [3]float32
}

// SetTRS sets the local transform and the scale property together.
func (n *Node) SetTRS(t math.Vec3, r math.Quat, s math.Vec3) {
	n.Local = math.Compose(t, r, s)
	n.Scale = s.Array()
}

// Mesh is a polygon mesh. Faces reference Vertices by index; per-corner
// attributes live on the face loops.
type Mesh struct {
	ID        ID
	Name      string
	Vertices  [][3]float32
	Faces     []Face
	Materials []*Material // nil entries are empty slots
	UVLayers  []string
	HasColors bool
}

// Face is a polygon with at least three loops.
type Face struct {
	Material int
	Loops    []Loop
}

// Loop is one corner of a face.
type Loop struct {
	Vertex int
	Normal [3]float32
	UV     [][2]float32 // parallel to Mesh.UVLayers
	Color  [3]float32   // 0-1, only meaningful when Mesh.HasColors
}

// AddFace appends a polygon over the given vertex indices. Loops get the
// flat face normal and zeroed UVs for every layer.
func (m *Mesh) AddFace(material int, verts ...int) *Face {
	f := Face{Material: material, Loops: make([]Loop, len(verts))}
	for i, v := range verts {
		f.Loops[i] = Loop{Vertex: v, UV: make([][2]float32, len(m.UVLayers))}
	}
	n := m.FaceNormal(&f)
	for i := range f.Loops {
		f.Loops[i].Normal = n
	}
	m.Faces = append(m.Faces, f)
	return &m.Faces[len(m.Faces)-1]
}

// FaceNormal returns the unit Newell normal of a face. Out-of-range vertex
// references are skipped.
func (m *Mesh) FaceNormal(f *Face) [3]float32 {
	var n math.Vec3
	for i := range f.Loops {
		a, b := f.Loops[i].Vertex, f.Loops[(i+1)%len(f.Loops)].Vertex
		if a < 0 || a >= len(m.Vertices) || b < 0 || b >= len(m.Vertices) {
			continue
		}
		cur, next := m.Vertices[a], m.Vertices[b]
		n.X += (cur[1] - next[1]) * (cur[2] + next[2])
		n.Y += (cur[2] - next[2]) * (cur[0] + next[0])
		n.Z += (cur[0] - next[0]) * (cur[1] + next[1])
	}
	return n.Normalize().Array()
}

// Material describes surface appearance the way the host stores it.
type Material struct {
	ID   ID
	Name string

	Diffuse           [3]float32
	Specular          [3]float32
	SpecularIntensity float32
	Emit              float32
	// Emissive, when set, replaces the Diffuse*Emit emissive color.
	Emissive *[3]float32
	Alpha    float32

	AdditiveBlend    bool
	BackfaceCulling  bool
	VertexColorPaint bool
	VertexColorLight bool

	Textures []*TextureSlot
}

// TextureSlot binds an image to material channels.
type TextureSlot struct {
	Name    string
	Enabled bool
	Image   *Image // nil when the slot is not an image texture
	UVLayer string // empty when unset

	Diffuse        bool
	Emission       bool
	Specular       bool
	Alpha          bool
	Normal         bool
	RGBToIntensity bool
	NormalFactor   float32
}

// Image is a texture source. Data is set for images embedded in the source
// file; otherwise the bytes live at Path.
type Image struct {
	Path string
	Data []byte
}
