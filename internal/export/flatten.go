package export

import (
	"fmt"

	"github.com/flywave/go3d/float64/vec3"
)

// Attribute is one named stream of a vertex buffer.
type Attribute struct {
	Type       string    `json:"type"`
	Components int       `json:"components"`
	Data       []float32 `json:"data"`
}

// VertexBuffer maps attribute names (position, normal, texCoordN, color) to
// their streams.
type VertexBuffer map[string]*Attribute

// Corners returns the number of vertex slots in the buffer.
func (vb VertexBuffer) Corners() int {
	pos, ok := vb["position"]
	if !ok || pos.Components == 0 {
		return 0
	}
	return len(pos.Data) / pos.Components
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min [3]float32 `json:"min"`
	Max [3]float32 `json:"max"`
}

// MeshRecord is one entry of the model's meshes list.
type MeshRecord struct {
	Vertices int    `json:"vertices"`
	Indices  []int  `json:"indices"`
	AABB     AABB   `json:"aabb"`
	Type     string `json:"type"`
	Base     int    `json:"base"`
	Count    int    `json:"count"`
}

func texCoordKey(n int) string {
	return fmt.Sprintf("texCoord%d", n)
}

// Flatten expands a sub-mesh into one vertex slot per triangle corner.
// Corners are never shared, so indices are simply 0..n-1. vertexID is the
// position the buffer will take in the model's vertices list.
func Flatten(sub *SubMesh, reg *UVRegistry, vertexID int) (VertexBuffer, *MeshRecord) {
	n := 3 * len(sub.Faces)
	src := sub.Source

	pos := &Attribute{Type: "float32", Components: 3, Data: make([]float32, 0, 3*n)}
	nrm := &Attribute{Type: "float32", Components: 3, Data: make([]float32, 0, 3*n)}
	vb := VertexBuffer{"position": pos, "normal": nrm}

	// layer slot on the loop -> stream
	uvs := make([]*Attribute, len(src.UVLayers))
	for i, name := range src.UVLayers {
		idx, ok := reg.Index(name)
		if !ok {
			continue
		}
		key := texCoordKey(idx)
		if _, dup := vb[key]; dup {
			continue
		}
		uvs[i] = &Attribute{Type: "float32", Components: 2, Data: make([]float32, 0, 2*n)}
		vb[key] = uvs[i]
	}

	var col *Attribute
	if src.HasColors {
		col = &Attribute{Type: "uint8", Components: 4, Data: make([]float32, 0, 4*n)}
		vb["color"] = col
	}

	box := vec3.MinBox
	indices := make([]int, 0, n)
	for _, f := range sub.Faces {
		for _, l := range f.Loops {
			p := sub.Vertices[l.Vertex]
			pos.Data = append(pos.Data, p[0], p[1], p[2])
			nrm.Data = append(nrm.Data, l.Normal[0], l.Normal[1], l.Normal[2])
			box.Extend(&vec3.T{float64(p[0]), float64(p[1]), float64(p[2])})

			for i, uv := range uvs {
				if uv == nil {
					continue
				}
				var c [2]float32
				if i < len(l.UV) {
					c = l.UV[i]
				}
				uv.Data = append(uv.Data, c[0], c[1])
			}
			if col != nil {
				col.Data = append(col.Data,
					colorByte(l.Color[0]), colorByte(l.Color[1]), colorByte(l.Color[2]), 255)
			}
			indices = append(indices, len(indices))
		}
	}

	rec := &MeshRecord{
		Vertices: vertexID,
		Indices:  indices,
		Type:     "triangles",
		Count:    len(indices),
	}
	if len(indices) > 0 {
		for i := 0; i < 3; i++ {
			rec.AABB.Min[i] = float32(box.Min[i])
			rec.AABB.Max[i] = float32(box.Max[i])
		}
	}
	return vb, rec
}

// colorByte truncates a 0-1 channel to 0-255.
func colorByte(c float32) float32 {
	v := int(c * 255)
	switch {
	case v < 0:
		v = 0
	case v > 255:
		v = 255
	}
	return float32(v)
}
