package export

import (
	"fmt"
	gomath "math"

	"github.com/Faultbox/pcexport/pkg/scene"
)

// PlaceholderID is the identity of the stand-in mesh used for objects
// without geometry.
const PlaceholderID = ^scene.ID(0)

// SubMesh is the material-homogeneous, triangulated and vertex-pruned part
// of a source mesh, together with the objects instancing it.
type SubMesh struct {
	Name   string
	Source *scene.Mesh
	// MaterialIndex is the source slot, or -1 when the mesh has no slots.
	MaterialIndex int
	// Material is nil when the part uses the dummy material.
	Material  *scene.Material
	Vertices  [][3]float32
	Faces     []scene.Face
	Instances []*scene.Node
}

// TriangleCount returns the number of faces, all of which are triangles.
func (s *SubMesh) TriangleCount() int {
	return len(s.Faces)
}

// PlaceholderMesh returns a single degenerate triangle at the origin. Every
// object without geometry instances it, so node ids and mesh instance ids
// stay in lockstep.
func PlaceholderMesh() *scene.Mesh {
	m := &scene.Mesh{
		ID:       PlaceholderID,
		Name:     "EmptyMesh",
		Vertices: [][3]float32{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}},
	}
	m.Faces = []scene.Face{{Loops: []scene.Loop{{Vertex: 0}, {Vertex: 1}, {Vertex: 2}}}}
	return m
}

// SplitMesh triangulates a mesh and partitions it by material slot. Slots
// whose faces reference no vertex are dropped, unless that would leave the
// mesh with no part at all.
func SplitMesh(m *scene.Mesh, instances []*scene.Node) ([]*SubMesh, error) {
	if err := validateMesh(m); err != nil {
		return nil, err
	}
	tris := Triangulate(m)

	if len(m.Materials) == 0 {
		verts, faces := prune(m.Vertices, tris)
		return []*SubMesh{{
			Name:          m.Name,
			Source:        m,
			MaterialIndex: -1,
			Vertices:      verts,
			Faces:         faces,
			Instances:     instances,
		}}, nil
	}

	var parts []*SubMesh
	for slot, mat := range m.Materials {
		var kept []scene.Face
		for _, f := range tris {
			if f.Material == slot {
				kept = append(kept, f)
			}
		}
		verts, faces := prune(m.Vertices, kept)
		if len(verts) == 0 {
			continue
		}
		parts = append(parts, &SubMesh{
			Name:          subMeshName(m, mat),
			Source:        m,
			MaterialIndex: slot,
			Material:      mat,
			Vertices:      verts,
			Faces:         faces,
			Instances:     instances,
		})
	}

	if len(parts) == 0 {
		parts = append(parts, &SubMesh{
			Name:          subMeshName(m, m.Materials[0]),
			Source:        m,
			MaterialIndex: 0,
			Material:      m.Materials[0],
			Instances:     instances,
		})
	}
	return parts, nil
}

func subMeshName(m *scene.Mesh, mat *scene.Material) string {
	if len(m.Materials) <= 1 {
		return m.Name
	}
	name := dummyMaterialName
	if mat != nil {
		name = mat.Name
	}
	return m.Name + "." + name
}

func validateMesh(m *scene.Mesh) error {
	for fi, f := range m.Faces {
		if len(m.Materials) > 0 && (f.Material < 0 || f.Material >= len(m.Materials)) {
			return fmt.Errorf("mesh %q face %d: %w: %d (mesh has %d slots)",
				m.Name, fi, ErrMaterialIndex, f.Material, len(m.Materials))
		}
		for _, l := range f.Loops {
			if l.Vertex < 0 || l.Vertex >= len(m.Vertices) {
				return fmt.Errorf("mesh %q face %d: %w: %d (mesh has %d vertices)",
					m.Name, fi, ErrVertexIndex, l.Vertex, len(m.Vertices))
			}
		}
	}
	return nil
}

// prune drops vertices no face references, keeping survivors in their
// original order, and remaps loop vertex indices.
func prune(verts [][3]float32, faces []scene.Face) ([][3]float32, []scene.Face) {
	remap := make([]int, len(verts))
	for i := range remap {
		remap[i] = -1
	}
	for _, f := range faces {
		for _, l := range f.Loops {
			remap[l.Vertex] = 0
		}
	}

	var out [][3]float32
	for i, v := range verts {
		if remap[i] < 0 {
			continue
		}
		remap[i] = len(out)
		out = append(out, v)
	}

	pruned := make([]scene.Face, len(faces))
	for i, f := range faces {
		loops := make([]scene.Loop, len(f.Loops))
		for j, l := range f.Loops {
			l.Vertex = remap[l.Vertex]
			loops[j] = l
		}
		pruned[i] = scene.Face{Material: f.Material, Loops: loops}
	}
	return out, pruned
}

// Triangulate returns the faces of m as triangles. Triangles pass through;
// larger polygons are ear-clipped in their dominant plane. Faces with fewer
// than three loops are dropped.
func Triangulate(m *scene.Mesh) []scene.Face {
	out := make([]scene.Face, 0, len(m.Faces))
	for i := range m.Faces {
		f := &m.Faces[i]
		switch {
		case len(f.Loops) < 3:
			continue
		case len(f.Loops) == 3:
			out = append(out, *f)
		default:
			for _, t := range earClip(m, f) {
				out = append(out, scene.Face{
					Material: f.Material,
					Loops:    []scene.Loop{f.Loops[t[0]], f.Loops[t[1]], f.Loops[t[2]]},
				})
			}
		}
	}
	return out
}

// earClip returns loop index triples covering the polygon. When no ear can
// be found (degenerate or self-intersecting input) the rest is fanned.
func earClip(m *scene.Mesh, f *scene.Face) [][3]int {
	n := len(f.Loops)
	pts := project(m, f)
	if pts == nil {
		return fan(seq(n))
	}

	var area float64
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		area += a[0]*b[1] - b[0]*a[1]
	}
	orient := 1.0
	if area < 0 {
		orient = -1
	}

	idx := seq(n)
	tris := make([][3]int, 0, n-2)
	for len(idx) > 3 {
		clipped := false
		for i := range idx {
			prev := idx[(i+len(idx)-1)%len(idx)]
			cur := idx[i]
			next := idx[(i+1)%len(idx)]
			if !isEar(pts, idx, prev, cur, next, orient) {
				continue
			}
			tris = append(tris, [3]int{prev, cur, next})
			idx = append(idx[:i:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			return append(tris, fan(idx)...)
		}
	}
	return append(tris, [3]int{idx[0], idx[1], idx[2]})
}

func isEar(pts [][2]float64, idx []int, prev, cur, next int, orient float64) bool {
	a, b, c := pts[prev], pts[cur], pts[next]
	if cross2(a, b, c)*orient <= 1e-12 {
		return false
	}
	for _, o := range idx {
		if o == prev || o == cur || o == next {
			continue
		}
		if inTriangle(pts[o], a, b, c, orient) {
			return false
		}
	}
	return true
}

func inTriangle(p, a, b, c [2]float64, orient float64) bool {
	return cross2(a, b, p)*orient >= 0 &&
		cross2(b, c, p)*orient >= 0 &&
		cross2(c, a, p)*orient >= 0
}

func cross2(a, b, c [2]float64) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// project drops the dominant axis of the face normal. It returns nil for a
// face without a usable normal.
func project(m *scene.Mesh, f *scene.Face) [][2]float64 {
	nrm := m.FaceNormal(f)
	ax, ay, az := gomath.Abs(float64(nrm[0])), gomath.Abs(float64(nrm[1])), gomath.Abs(float64(nrm[2]))
	if ax+ay+az == 0 {
		return nil
	}
	u, v := 0, 1
	switch {
	case ax >= ay && ax >= az:
		u, v = 1, 2
	case ay >= az:
		u, v = 2, 0
	}
	pts := make([][2]float64, len(f.Loops))
	for i, l := range f.Loops {
		p := m.Vertices[l.Vertex]
		pts[i] = [2]float64{float64(p[u]), float64(p[v])}
	}
	return pts
}

func fan(idx []int) [][3]int {
	tris := make([][3]int, 0, len(idx))
	for i := 1; i+1 < len(idx); i++ {
		tris = append(tris, [3]int{idx[0], idx[i], idx[i+1]})
	}
	return tris
}

func seq(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}
