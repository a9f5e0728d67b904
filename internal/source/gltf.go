package source

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/pcexport/pkg/math"
	"github.com/Faultbox/pcexport/pkg/scene"
)

// maxTexCoords bounds the TEXCOORD_n attributes read per primitive.
const maxTexCoords = 8

// OpenGLTF reads a .gltf or .glb file. Relative image URIs resolve against
// the file's directory.
func OpenGLTF(file string, opts Options) (*scene.Scene, error) {
	doc, err := gltf.Open(file)
	if err != nil {
		return nil, fmt.Errorf("reading glTF: %w", err)
	}
	return FromGLTF(doc, filepath.Dir(file), opts)
}

type gltfReader struct {
	doc *gltf.Document
	dir string
	log *zap.Logger
	s   *scene.Scene

	meshes  map[int]*scene.Mesh
	mats    map[int]*scene.Material
	visited map[int]bool
}

// FromGLTF converts the default scene of a document. Meshes and materials
// referenced from several nodes keep a single identity.
func FromGLTF(doc *gltf.Document, dir string, opts Options) (*scene.Scene, error) {
	r := &gltfReader{
		doc:     doc,
		dir:     dir,
		log:     opts.logger(),
		s:       scene.NewScene(),
		meshes:  make(map[int]*scene.Mesh),
		mats:    make(map[int]*scene.Material),
		visited: make(map[int]bool),
	}
	for _, idx := range r.roots() {
		if err := r.addNode(idx, nil); err != nil {
			return nil, err
		}
	}
	return r.s, nil
}

func (r *gltfReader) roots() []int {
	if len(r.doc.Scenes) > 0 {
		sc := 0
		if r.doc.Scene != nil && int(*r.doc.Scene) < len(r.doc.Scenes) {
			sc = int(*r.doc.Scene)
		}
		out := make([]int, len(r.doc.Scenes[sc].Nodes))
		for i, n := range r.doc.Scenes[sc].Nodes {
			out[i] = int(n)
		}
		return out
	}

	// no scenes: every node that is nobody's child
	child := make(map[int]bool)
	for _, n := range r.doc.Nodes {
		for _, c := range n.Children {
			child[int(c)] = true
		}
	}
	var out []int
	for i := range r.doc.Nodes {
		if !child[i] {
			out = append(out, i)
		}
	}
	return out
}

func (r *gltfReader) addNode(idx int, parent *scene.Node) error {
	if idx < 0 || idx >= len(r.doc.Nodes) {
		return fmt.Errorf("glTF node %d out of range", idx)
	}
	if r.visited[idx] {
		return fmt.Errorf("glTF node %d reached twice", idx)
	}
	r.visited[idx] = true

	gn := r.doc.Nodes[idx]
	name := gn.Name
	if name == "" {
		name = fmt.Sprintf("Node.%03d", idx)
	}
	n := r.s.AddNode(name, parent)
	n.Local, n.Scale = nodeTransform(gn)

	if gn.Mesh != nil {
		m, err := r.mesh(int(*gn.Mesh))
		if err != nil {
			return fmt.Errorf("node %q: %w", name, err)
		}
		n.Mesh = m
	}
	for _, c := range gn.Children {
		if err := r.addNode(int(c), n); err != nil {
			return err
		}
	}
	return nil
}

func nodeTransform(gn *gltf.Node) (math.Mat4, [3]float32) {
	mtx := gn.MatrixOrDefault()
	local := math.FromFloat64(mtx)
	if local != math.Identity() {
		return local, local.ScaleFactors().Array()
	}

	t := gn.TranslationOrDefault()
	q := gn.RotationOrDefault()
	sc := gn.ScaleOrDefault()
	tv := math.Vec3{X: float32(t[0]), Y: float32(t[1]), Z: float32(t[2])}
	rq := math.Quat{X: float32(q[0]), Y: float32(q[1]), Z: float32(q[2]), W: float32(q[3])}
	sv := math.Vec3{X: float32(sc[0]), Y: float32(sc[1]), Z: float32(sc[2])}
	return math.Compose(tv, rq.Normalize(), sv), sv.Array()
}

func uvLayerName(n int) string {
	return "TEXCOORD_" + strconv.Itoa(n)
}

func (r *gltfReader) mesh(idx int) (*scene.Mesh, error) {
	if m, ok := r.meshes[idx]; ok {
		return m, nil
	}
	if idx < 0 || idx >= len(r.doc.Meshes) {
		return nil, fmt.Errorf("glTF mesh %d out of range", idx)
	}
	gm := r.doc.Meshes[idx]
	name := gm.Name
	if name == "" {
		name = fmt.Sprintf("Mesh.%03d", idx)
	}
	m := r.s.NewMesh(name)

	layers := 0
	for _, p := range gm.Primitives {
		for n := 0; n < maxTexCoords; n++ {
			if _, ok := p.Attributes[uvLayerName(n)]; ok && n+1 > layers {
				layers = n + 1
			}
		}
		if _, ok := p.Attributes[gltf.COLOR_0]; ok {
			m.HasColors = true
		}
	}
	for n := 0; n < layers; n++ {
		m.UVLayers = append(m.UVLayers, uvLayerName(n))
	}

	slots := make(map[int]int)
	for pi, p := range gm.Primitives {
		if err := r.primitive(m, p, slots); err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", name, pi, err)
		}
	}
	r.meshes[idx] = m
	return m, nil
}

func (r *gltfReader) primitive(m *scene.Mesh, p *gltf.Primitive, slots map[int]int) error {
	switch p.Mode {
	case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
	default:
		r.log.Warn("skipping non-triangle primitive", zap.String("mesh", m.Name))
		return nil
	}
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil
	}
	doc := r.doc

	pos, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return fmt.Errorf("reading positions: %w", err)
	}
	base := len(m.Vertices)
	m.Vertices = append(m.Vertices, pos...)

	var normals [][3]float32
	if a, ok := p.Attributes[gltf.NORMAL]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[a], nil); err != nil {
			return fmt.Errorf("reading normals: %w", err)
		}
	}
	uvs := make([][][2]float32, len(m.UVLayers))
	for n := range uvs {
		if a, ok := p.Attributes[uvLayerName(n)]; ok {
			if uvs[n], err = modeler.ReadTextureCoord(doc, doc.Accessors[a], nil); err != nil {
				return fmt.Errorf("reading %s: %w", uvLayerName(n), err)
			}
		}
	}
	var colors [][4]uint8
	if a, ok := p.Attributes[gltf.COLOR_0]; ok {
		if colors, err = modeler.ReadColor(doc, doc.Accessors[a], nil); err != nil {
			return fmt.Errorf("reading colors: %w", err)
		}
	}

	var indices []int
	if p.Indices != nil {
		raw, err := modeler.ReadIndices(doc, doc.Accessors[int(*p.Indices)], nil)
		if err != nil {
			return fmt.Errorf("reading indices: %w", err)
		}
		indices = make([]int, len(raw))
		for i, v := range raw {
			indices[i] = int(v)
		}
	} else {
		indices = make([]int, len(pos))
		for i := range indices {
			indices[i] = i
		}
	}

	slot, err := r.slot(m, p, slots)
	if err != nil {
		return err
	}

	for _, tri := range triangles(p.Mode, indices) {
		face := scene.Face{Material: slot, Loops: make([]scene.Loop, 3)}
		for j, vi := range tri {
			if vi >= len(pos) {
				return fmt.Errorf("index %d out of %d vertices", vi, len(pos))
			}
			l := scene.Loop{Vertex: base + vi, UV: make([][2]float32, len(m.UVLayers))}
			if vi < len(normals) {
				l.Normal = normals[vi]
			}
			for n, uv := range uvs {
				if vi < len(uv) {
					l.UV[n] = uv[vi]
				}
			}
			if vi < len(colors) {
				c := colors[vi]
				l.Color = [3]float32{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255}
			} else if m.HasColors {
				l.Color = [3]float32{1, 1, 1}
			}
			face.Loops[j] = l
		}
		if normals == nil {
			n := m.FaceNormal(&face)
			for j := range face.Loops {
				face.Loops[j].Normal = n
			}
		}
		m.Faces = append(m.Faces, face)
	}
	return nil
}

// triangles expands an index list into triangles for the primitive mode.
// Strip triangles alternate winding so all keep the same facing.
func triangles(mode gltf.PrimitiveMode, idx []int) [][3]int {
	var out [][3]int
	switch mode {
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(idx); i++ {
			t := [3]int{idx[i], idx[i+1], idx[i+2]}
			if i%2 == 1 {
				t[0], t[1] = t[1], t[0]
			}
			if t[0] != t[1] && t[1] != t[2] && t[0] != t[2] {
				out = append(out, t)
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(idx); i++ {
			out = append(out, [3]int{idx[0], idx[i], idx[i+1]})
		}
	default:
		for i := 0; i+2 < len(idx); i += 3 {
			out = append(out, [3]int{idx[i], idx[i+1], idx[i+2]})
		}
	}
	return out
}

// slot returns the mesh material slot of a primitive, adding it on first
// use. Primitives without a material share one empty slot.
func (r *gltfReader) slot(m *scene.Mesh, p *gltf.Primitive, slots map[int]int) (int, error) {
	key := -1
	if p.Material != nil {
		key = int(*p.Material)
	}
	if s, ok := slots[key]; ok {
		return s, nil
	}
	var mat *scene.Material
	if key >= 0 {
		var err error
		if mat, err = r.material(key); err != nil {
			return 0, err
		}
	}
	slots[key] = len(m.Materials)
	m.Materials = append(m.Materials, mat)
	return slots[key], nil
}

func (r *gltfReader) material(idx int) (*scene.Material, error) {
	if m, ok := r.mats[idx]; ok {
		return m, nil
	}
	if idx >= len(r.doc.Materials) {
		return nil, fmt.Errorf("glTF material %d out of range", idx)
	}
	gm := r.doc.Materials[idx]
	name := gm.Name
	if name == "" {
		name = fmt.Sprintf("Material.%03d", idx)
	}

	mat := r.s.NewMaterial(name)
	mat.Diffuse = [3]float32{1, 1, 1}
	mat.Specular = [3]float32{0, 0, 0}
	mat.BackfaceCulling = !gm.DoubleSided

	alpha := float32(1)
	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		c := pbr.BaseColorFactorOrDefault()
		mat.Diffuse = [3]float32{float32(c[0]), float32(c[1]), float32(c[2])}
		alpha = float32(c[3])
		if t := pbr.BaseColorTexture; t != nil {
			slot, err := r.texture(int(t.Index), int(t.TexCoord), name+"_baseColor")
			if err != nil {
				return nil, err
			}
			if slot != nil {
				slot.Diffuse = true
				mat.Textures = append(mat.Textures, slot)
			}
		}
	}
	if gm.AlphaMode == gltf.AlphaBlend {
		mat.Alpha = alpha
	}

	e := gm.EmissiveFactor
	if e[0] != 0 || e[1] != 0 || e[2] != 0 {
		mat.Emissive = &[3]float32{float32(e[0]), float32(e[1]), float32(e[2])}
	}
	if t := gm.EmissiveTexture; t != nil {
		slot, err := r.texture(int(t.Index), int(t.TexCoord), name+"_emissive")
		if err != nil {
			return nil, err
		}
		if slot != nil {
			slot.Emission = true
			mat.Textures = append(mat.Textures, slot)
		}
	}
	if t := gm.NormalTexture; t != nil && t.Index != nil {
		slot, err := r.texture(int(*t.Index), int(t.TexCoord), name+"_normal")
		if err != nil {
			return nil, err
		}
		if slot != nil {
			slot.Normal = true
			slot.NormalFactor = float32(t.ScaleOrDefault())
			mat.Textures = append(mat.Textures, slot)
		}
	}

	r.mats[idx] = mat
	return mat, nil
}

// texture resolves a texture reference to a slot with no channel set. It
// returns nil for textures without an image source.
func (r *gltfReader) texture(idx, texCoord int, fallback string) (*scene.TextureSlot, error) {
	if idx < 0 || idx >= len(r.doc.Textures) {
		return nil, fmt.Errorf("glTF texture %d out of range", idx)
	}
	tex := r.doc.Textures[idx]
	if tex.Source == nil || int(*tex.Source) >= len(r.doc.Images) {
		r.log.Warn("texture has no image source", zap.Int("texture", idx))
		return nil, nil
	}
	gi := r.doc.Images[int(*tex.Source)]

	img, err := r.image(gi)
	if err != nil {
		return nil, fmt.Errorf("texture %d: %w", idx, err)
	}
	name := gi.Name
	if name == "" {
		name = tex.Name
	}
	if name == "" {
		name = fallback
	}
	return &scene.TextureSlot{
		Name:    name,
		Enabled: true,
		Image:   img,
		UVLayer: uvLayerName(texCoord),
	}, nil
}

func (r *gltfReader) image(gi *gltf.Image) (*scene.Image, error) {
	switch {
	case gi.BufferView != nil:
		data, err := modeler.ReadBufferView(r.doc, r.doc.BufferViews[int(*gi.BufferView)])
		if err != nil {
			return nil, err
		}
		return &scene.Image{Data: append([]byte(nil), data...)}, nil
	case gi.IsEmbeddedResource():
		data, err := gi.MarshalData()
		if err != nil {
			return nil, err
		}
		return &scene.Image{Data: data}, nil
	default:
		uri, err := url.PathUnescape(gi.URI)
		if err != nil {
			uri = gi.URI
		}
		return &scene.Image{Path: filepath.Join(r.dir, filepath.FromSlash(uri))}, nil
	}
}
