package export

import "errors"

// Export errors. Each is wrapped with the offending node, mesh or file.
var (
	ErrMaterialIndex   = errors.New("face material index out of range")
	ErrVertexIndex     = errors.New("loop vertex index out of range")
	ErrCyclicHierarchy = errors.New("cyclic parent reference")
	ErrMissingTexture  = errors.New("texture source missing")
)
