package export

import (
	"fmt"
	"strings"

	"github.com/Faultbox/pcexport/pkg/scene"
)

const (
	dummyMaterialName = "None"
	mappingFormat     = "path"
)

// MaterialFile is a distinct material and the file it is written to. The
// dummy file has a nil Material.
type MaterialFile struct {
	Material *scene.Material
	FileName string

	written bool
}

// MaterialSet deduplicates materials by identity across an export run and
// assigns each a unique file name in the shared material directory.
type MaterialSet struct {
	byID  map[scene.ID]*MaterialFile
	used  map[string]bool
	dummy *MaterialFile
}

// NewMaterialSet returns an empty set. The dummy file name is reserved up
// front so a material called "None" cannot overwrite it.
func NewMaterialSet() *MaterialSet {
	return &MaterialSet{
		byID:  make(map[scene.ID]*MaterialFile),
		used:  map[string]bool{strings.ToLower(dummyMaterialName + ".json"): true},
		dummy: &MaterialFile{FileName: dummyMaterialName + ".json"},
	}
}

// Add records a use of m and returns its file. A nil material stands for
// the dummy.
func (s *MaterialSet) Add(m *scene.Material) *MaterialFile {
	if m == nil {
		return s.dummy
	}
	if f, ok := s.byID[m.ID]; ok {
		return f
	}
	base := safeName(m.Name)
	name := base + ".json"
	for n := 1; s.used[strings.ToLower(name)]; n++ {
		name = fmt.Sprintf("%s.%d.json", base, n)
	}
	s.used[strings.ToLower(name)] = true
	f := &MaterialFile{Material: m, FileName: name}
	s.byID[m.ID] = f
	return f
}

// dummyDescriptor is the whole content of the dummy material file.
func dummyDescriptor() map[string]any {
	return map[string]any{"mapping_format": mappingFormat}
}

// Descriptor returns the material record without texture references.
func Descriptor(m *scene.Material) map[string]any {
	spec := scaled(m.Specular, m.SpecularIntensity)
	emissive := scaled(m.Diffuse, m.Emit)
	if m.Emissive != nil {
		emissive = *m.Emissive
	}

	desc := map[string]any{
		"mapping_format": mappingFormat,
		"name":           m.Name,
		"diffuse":        m.Diffuse,
		"specular":       spec,
		"emissive":       emissive,
	}
	if m.AdditiveBlend {
		desc["blendType"] = 1
	}
	if m.VertexColorPaint {
		desc["diffuseMapVertexColor"] = true
	}
	if m.VertexColorLight {
		desc["emissiveMapVertexColor"] = true
	}
	if m.Alpha != 1 {
		desc["opacity"] = m.Alpha
	}
	if !m.BackfaceCulling {
		desc["cull"] = 0
	}
	return desc
}

func scaled(c [3]float32, f float32) [3]float32 {
	return [3]float32{c[0] * f, c[1] * f, c[2] * f}
}
