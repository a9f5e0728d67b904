package export

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/pcexport/pkg/scene"
)

func TestUVRegistry(t *testing.T) {
	s := scene.NewScene()
	a := s.AddNode("A", nil)
	a.Mesh = s.NewMesh("A")
	a.Mesh.UVLayers = []string{"UVMap", "Lightmap"}
	s.AddNode("Empty", nil)
	b := s.AddNode("B", nil)
	b.Mesh = s.NewMesh("B")
	b.Mesh.UVLayers = []string{"Detail", "UVMap"}

	r := NewUVRegistry(s.Objects())
	assert.Equal(t, []string{"UVMap", "Lightmap", "Detail"}, r.Names())

	i, ok := r.Index("Detail")
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = r.Index("Missing")
	assert.False(t, ok)

	names := r.Names()
	names[0] = "changed"
	assert.Equal(t, "UVMap", r.Names()[0])
}
