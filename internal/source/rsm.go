package source

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/pcexport/pkg/encoding"
	"github.com/Faultbox/pcexport/pkg/formats"
	"github.com/Faultbox/pcexport/pkg/math"
	"github.com/Faultbox/pcexport/pkg/scene"
)

const (
	// rsmUVLayer is the single UV layer RSM meshes carry.
	rsmUVLayer = "UVMap"
	// rsmTextureDir is where archives keep model textures.
	rsmTextureDir = "data/texture"
)

// OpenRSM reads an RSM model file. A file missing on disk is looked up in
// opts.Assets.
func OpenRSM(file string, opts Options) (*scene.Scene, error) {
	rsm, err := formats.ParseRSMFile(file)
	if errors.Is(err, fs.ErrNotExist) && opts.Assets != nil {
		data, lerr := opts.Assets.Load(file)
		if lerr != nil {
			return nil, lerr
		}
		rsm, err = formats.ParseRSM(data)
	} else if err == nil && opts.TextureRoot == "" {
		opts.TextureRoot = filepath.Dir(file)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return FromRSM(rsm, opts)
}

// FromRSM converts a parsed model. Every node becomes an object; every
// model texture becomes one material shared by the nodes that use it.
func FromRSM(rsm *formats.RSM, opts Options) (*scene.Scene, error) {
	log := opts.logger()
	s := scene.NewScene()

	if rsm.HasAnimation() {
		log.Info("model keyframes are not exported", zap.Int("animLength", int(rsm.AnimLength)))
	}

	mats := make([]*scene.Material, len(rsm.Textures))
	for i, tex := range rsm.Textures {
		mats[i] = rsmMaterial(s, tex, rsm.Alpha)
		mats[i].Textures[0].Image = rsmImage(tex, opts, log)
	}

	nodes := make([]*scene.Node, len(rsm.Nodes))
	byName := make(map[string]*scene.Node, len(rsm.Nodes))
	for i := range rsm.Nodes {
		rn := &rsm.Nodes[i]
		n := s.AddNode(rn.Name, nil)
		n.Local = rsmLocal(rn)
		n.Scale = rn.Scale
		nodes[i] = n
		if _, dup := byName[rn.Name]; !dup {
			byName[rn.Name] = n
		}
	}

	for i := range rsm.Nodes {
		rn := &rsm.Nodes[i]
		n := nodes[i]
		if !rn.IsRoot() {
			parent, ok := byName[rn.Parent]
			if !ok {
				log.Warn("parent node not found, treating as root",
					zap.String("node", rn.Name), zap.String("parent", rn.Parent))
			} else if parent != n {
				n.Parent = parent
				parent.Children = append(parent.Children, n)
			}
		}

		m, err := rsmMesh(s, rn, mats, rsm.Version, log)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", rn.Name, err)
		}
		n.Mesh = m
	}
	return s, nil
}

func rsmMaterial(s *scene.Scene, tex string, alpha float32) *scene.Material {
	rel := encoding.SlashPath(tex)
	name := strings.TrimSuffix(path.Base(rel), path.Ext(rel))

	m := s.NewMaterial(name)
	m.Diffuse = [3]float32{1, 1, 1}
	m.Specular = [3]float32{0, 0, 0}
	m.Alpha = alpha
	m.Textures = []*scene.TextureSlot{{
		Name:    name,
		Enabled: true,
		UVLayer: rsmUVLayer,
		Diffuse: true,
	}}
	return m
}

// rsmImage resolves a model texture. Textures found in the asset sources
// are loaded into memory; otherwise the path under the texture root is used
// and a missing file surfaces when the texture is copied.
func rsmImage(tex string, opts Options, log *zap.Logger) *scene.Image {
	rel := encoding.SlashPath(tex)
	if opts.Assets != nil {
		data, err := opts.Assets.Load(path.Join(rsmTextureDir, rel))
		if err == nil {
			return &scene.Image{Path: rel, Data: data}
		}
		log.Debug("texture not in asset sources", zap.String("texture", rel), zap.Error(err))
	}
	return &scene.Image{Path: filepath.Join(opts.TextureRoot, filepath.FromSlash(rel))}
}

// rsmLocal is Position * Rotation * Scale, the part of a node transform
// children inherit.
func rsmLocal(rn *formats.RSMNode) math.Mat4 {
	local := math.Translate(rn.Position[0], rn.Position[1], rn.Position[2])
	axis := math.V3(rn.RotAxis)
	if rn.RotAngle != 0 && axis.Length() > 1e-6 {
		local = local.Mul(math.RotateAxis(axis.Normalize().Array(), rn.RotAngle))
	}
	return local.Mul(math.Scale(rn.Scale[0], rn.Scale[1], rn.Scale[2]))
}

// rsmMesh builds the node mesh with Offset and the 3x3 matrix baked into
// the vertices, since children do not inherit them.
func rsmMesh(s *scene.Scene, rn *formats.RSMNode, mats []*scene.Material,
	version formats.RSMVersion, log *zap.Logger) (*scene.Mesh, error) {
	if len(rn.Faces) == 0 {
		return nil, nil
	}

	vm := math.Translate(rn.Offset[0], rn.Offset[1], rn.Offset[2]).Mul(math.FromMat3x3(rn.Matrix))

	m := s.NewMesh(rn.Name)
	m.UVLayers = []string{rsmUVLayer}
	m.HasColors = version.AtLeast(1, 2)
	m.Vertices = make([][3]float32, len(rn.Vertices))
	for i, v := range rn.Vertices {
		m.Vertices[i] = vm.TransformPoint(v)
	}

	m.Materials = make([]*scene.Material, len(rn.TextureIDs))
	for i, id := range rn.TextureIDs {
		if id >= 0 && int(id) < len(mats) {
			m.Materials[i] = mats[id]
		}
	}

	skipped := 0
	for _, f := range rn.Faces {
		if !validRSMFace(f, len(rn.Vertices)) {
			skipped++
			continue
		}
		slot := int(f.TextureID)
		if len(m.Materials) > 0 && slot >= len(m.Materials) {
			return nil, fmt.Errorf("face texture %d of %d", slot, len(m.Materials))
		}

		face := m.AddFace(slot, int(f.VertexIDs[0]), int(f.VertexIDs[1]), int(f.VertexIDs[2]))
		for j := range face.Loops {
			tid := int(f.TexCoordIDs[j])
			if tid >= len(rn.TexCoords) {
				continue
			}
			tc := rn.TexCoords[tid]
			face.Loops[j].UV[0] = [2]float32{tc.U, 1 - tc.V}
			face.Loops[j].Color = [3]float32{
				float32(tc.Color[0]) / 255,
				float32(tc.Color[1]) / 255,
				float32(tc.Color[2]) / 255,
			}
		}
		if f.TwoSide != 0 && len(m.Materials) > 0 && m.Materials[slot] != nil {
			m.Materials[slot].BackfaceCulling = false
		}
	}
	if skipped > 0 {
		log.Warn("skipped faces with invalid vertices",
			zap.String("node", rn.Name), zap.Int("count", skipped))
	}
	return m, nil
}

func validRSMFace(f formats.RSMFace, nverts int) bool {
	for _, id := range f.VertexIDs {
		if int(id) >= nverts {
			return false
		}
	}
	return true
}
