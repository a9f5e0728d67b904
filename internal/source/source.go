// Package source builds scenes from model files on disk.
package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/pcexport/internal/assets"
	"github.com/Faultbox/pcexport/pkg/scene"
)

// ErrUnsupportedFormat is returned for files no reader understands.
var ErrUnsupportedFormat = errors.New("unsupported scene format")

// Options configure scene readers.
type Options struct {
	// TextureRoot is where RSM texture paths are resolved. Empty means the
	// directory of the model file.
	TextureRoot string
	// Assets, when set, is searched for models missing on disk and for RSM
	// textures, which are looked up under data/texture/.
	Assets *assets.Manager
	// Log receives warnings about skipped data. Nil discards them.
	Log *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}
	return o.Log
}

// Open reads a scene file, choosing the reader by extension.
func Open(path string, opts Options) (*scene.Scene, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rsm":
		return OpenRSM(path, opts)
	case ".gltf", ".glb":
		return OpenGLTF(path, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Stats summarises a scene.
type Stats struct {
	Objects   int
	Selected  int
	Meshes    int
	Materials int
	Textures  int
	Faces     int
	UVLayers  []string
}

// Summary counts the distinct meshes, materials and faces reachable from a
// provider's objects.
func Summary(p scene.Provider) Stats {
	st := Stats{Objects: len(p.Objects()), Selected: len(p.Selection())}
	meshes := make(map[scene.ID]bool)
	mats := make(map[scene.ID]bool)
	layers := make(map[string]bool)

	for _, obj := range p.Objects() {
		m := obj.Mesh
		if m == nil || meshes[m.ID] {
			continue
		}
		meshes[m.ID] = true
		st.Faces += len(m.Faces)
		for _, l := range m.UVLayers {
			if !layers[l] {
				layers[l] = true
				st.UVLayers = append(st.UVLayers, l)
			}
		}
		for _, mat := range m.Materials {
			if mat == nil || mats[mat.ID] {
				continue
			}
			mats[mat.ID] = true
			for _, slot := range mat.Textures {
				if slot != nil && slot.Image != nil {
					st.Textures++
				}
			}
		}
	}
	st.Meshes = len(meshes)
	st.Materials = len(mats)
	return st
}
