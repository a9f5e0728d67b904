package export

import "github.com/Faultbox/pcexport/pkg/scene"

// UVRegistry is the ordered set of UV layer names seen across a hierarchy.
// A layer's position fixes its texCoord{N} suffix in every document of that
// hierarchy. It is built once and never changed afterwards.
type UVRegistry struct {
	names []string
	index map[string]int
}

// NewUVRegistry collects the distinct UV layer names of every mesh object,
// in object order then layer order.
func NewUVRegistry(objects []*scene.Node) *UVRegistry {
	r := &UVRegistry{index: make(map[string]int)}
	for _, obj := range objects {
		if obj.Mesh == nil {
			continue
		}
		for _, name := range obj.Mesh.UVLayers {
			if _, ok := r.index[name]; ok {
				continue
			}
			r.index[name] = len(r.names)
			r.names = append(r.names, name)
		}
	}
	return r
}

// Index returns the registry position of a layer name.
func (r *UVRegistry) Index(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// Names returns the layer names in registry order.
func (r *UVRegistry) Names() []string {
	return append([]string(nil), r.names...)
}
