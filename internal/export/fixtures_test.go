package export

import "github.com/Faultbox/pcexport/pkg/scene"

// cubeFaces are the six quads of a unit cube, wound outwards.
var cubeFaces = [][4]int{
	{0, 3, 2, 1}, // -z
	{4, 5, 6, 7}, // +z
	{0, 1, 5, 4}, // -y
	{2, 3, 7, 6}, // +y
	{0, 4, 7, 3}, // -x
	{1, 2, 6, 5}, // +x
}

// newCube builds a cube mesh. With materials, the first half of the faces
// uses slot 0 and the rest the last slot.
func newCube(s *scene.Scene, name string, mats ...*scene.Material) *scene.Mesh {
	m := s.NewMesh(name)
	m.Vertices = [][3]float32{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	}
	m.Materials = mats
	m.UVLayers = []string{"UVMap"}
	for i, f := range cubeFaces {
		slot := 0
		if len(mats) > 1 && i >= len(cubeFaces)/2 {
			slot = len(mats) - 1
		}
		face := m.AddFace(slot, f[0], f[1], f[2], f[3])
		for j := range face.Loops {
			face.Loops[j].UV[0] = [2]float32{float32(j & 1), float32(j >> 1)}
		}
	}
	return m
}

// twoCubes is two sibling cubes, one with two materials and one with none.
func twoCubes() (*scene.Scene, *scene.Material, *scene.Material) {
	s := scene.NewScene()
	red := s.NewMaterial("Red")
	red.Diffuse = [3]float32{1, 0, 0}
	blue := s.NewMaterial("Blue")
	blue.Diffuse = [3]float32{0, 0, 1}

	a := s.AddNode("CubeA", nil)
	a.Mesh = newCube(s, "CubeMeshA", red, blue)
	b := s.AddNode("CubeB", nil)
	b.Mesh = newCube(s, "CubeMeshB")
	return s, red, blue
}
