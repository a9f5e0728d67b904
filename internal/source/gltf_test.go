package source

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

// writeTestGLTF writes a two-node document sharing one triangle mesh.
func writeTestGLTF(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, positions))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 2, 0}))

	doc := fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [
    {"name": "Parent", "mesh": 0, "children": [1], "translation": [1, 2, 3]},
    {"name": "Child", "mesh": 0, "translation": [0, 2, 0], "scale": [2, 2, 2]}
  ],
  "meshes": [{"name": "Tri", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]}],
  "materials": [{
    "name": "Glass",
    "doubleSided": true,
    "alphaMode": "BLEND",
    "emissiveFactor": [0, 1, 0],
    "pbrMetallicRoughness": {"baseColorFactor": [1, 0, 0, 0.5], "baseColorTexture": {"index": 0}}
  }],
  "textures": [{"source": 0}],
  "images": [{"name": "glassTex", "uri": "data:image/png;base64,%s"}],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6}
  ],
  "buffers": [{"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}]
}`, base64.StdEncoding.EncodeToString(pngHeader), buf.Len(), base64.StdEncoding.EncodeToString(buf.Bytes()))

	path := filepath.Join(t.TempDir(), "tri.gltf")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestOpenGLTF(t *testing.T) {
	s, err := Open(writeTestGLTF(t), Options{})
	require.NoError(t, err)

	objs := s.Objects()
	require.Len(t, objs, 2)
	parent, child := objs[0], objs[1]
	assert.Equal(t, "Parent", parent.Name)
	assert.Same(t, parent, child.Parent)
	assert.Same(t, parent.Mesh, child.Mesh)

	tr := parent.Local.Translation()
	assert.Equal(t, [3]float32{1, 2, 3}, tr.Array())
	assert.Equal(t, [3]float32{2, 2, 2}, child.Scale)

	m := parent.Mesh
	assert.Equal(t, "Tri", m.Name)
	require.Len(t, m.Faces, 1)
	assert.Len(t, m.Vertices, 3)
	// no NORMAL attribute, so the flat normal is used
	assert.Equal(t, [3]float32{0, 0, 1}, m.Faces[0].Loops[0].Normal)

	require.Len(t, m.Materials, 1)
	mat := m.Materials[0]
	assert.Equal(t, "Glass", mat.Name)
	assert.Equal(t, [3]float32{1, 0, 0}, mat.Diffuse)
	assert.Equal(t, float32(0.5), mat.Alpha)
	assert.False(t, mat.BackfaceCulling)
	require.NotNil(t, mat.Emissive)
	assert.Equal(t, [3]float32{0, 1, 0}, *mat.Emissive)

	require.Len(t, mat.Textures, 1)
	slot := mat.Textures[0]
	assert.Equal(t, "glassTex", slot.Name)
	assert.True(t, slot.Diffuse)
	assert.Equal(t, "TEXCOORD_0", slot.UVLayer)
	assert.Equal(t, pngHeader, slot.Image.Data)
}

func TestTriangles(t *testing.T) {
	tests := []struct {
		name string
		mode gltf.PrimitiveMode
		idx  []int
		want [][3]int
	}{
		{"list drops trailing index", gltf.PrimitiveTriangles, []int{0, 1, 2, 3, 4, 5, 6}, [][3]int{{0, 1, 2}, {3, 4, 5}}},
		{"strip alternates winding", gltf.PrimitiveTriangleStrip, []int{0, 1, 2, 3}, [][3]int{{0, 1, 2}, {2, 1, 3}}},
		{"strip skips degenerate", gltf.PrimitiveTriangleStrip, []int{0, 1, 1, 2}, nil},
		{"fan", gltf.PrimitiveTriangleFan, []int{0, 1, 2, 3}, [][3]int{{0, 1, 2}, {0, 2, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, triangles(tt.mode, tt.idx))
		})
	}
}
