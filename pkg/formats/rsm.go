// Package formats provides parsers for the binary model formats the exporter
// can read scenes from.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/pcexport/pkg/encoding"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
)

const (
	rsmNameLen   = 40
	rsmMaxNodes  = 10000
	rsmMaxItems  = 100000
	rsmMaxKeys   = 10000
	rsmMaxBoxes  = 1000
	rsmMaxTexIDs = 1000
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// RSMShadingType represents the shading mode for rendering.
type RSMShadingType int32

const (
	RSMShadingNone   RSMShadingType = 0
	RSMShadingFlat   RSMShadingType = 1
	RSMShadingSmooth RSMShadingType = 2
)

// String returns a human-readable shading type name.
func (s RSMShadingType) String() string {
	switch s {
	case RSMShadingNone:
		return "None"
	case RSMShadingFlat:
		return "Flat"
	case RSMShadingSmooth:
		return "Smooth"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// RSMTexCoord is a texture coordinate with its vertex color.
type RSMTexCoord struct {
	Color [4]uint8 // opaque white before 1.2
	U, V  float32
}

// RSMFace is a triangle. TextureID indexes the owning node's TextureIDs.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16
	Padding     uint16
	TwoSide     int32
	SmoothGroup int32
}

// RSMPosKeyframe represents a position animation keyframe.
type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
}

// RSMRotKeyframe represents a rotation animation keyframe.
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32
}

// RSMScaleKeyframe represents a scale animation keyframe.
type RSMScaleKeyframe struct {
	Frame int32
	Scale [3]float32
}

// RSMNode is one node of the model hierarchy. Parent refers to another
// node by name; an empty or self-referencing parent marks a root.
type RSMNode struct {
	Name       string
	Parent     string
	TextureIDs []int32

	Matrix   [9]float32 // vertex-only 3x3, not inherited by children
	Offset   [3]float32 // vertex-only pivot offset
	Position [3]float32
	RotAngle float32 // radians
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords []RSMTexCoord
	Faces     []RSMFace

	PosKeys   []RSMPosKeyframe
	RotKeys   []RSMRotKeyframe
	ScaleKeys []RSMScaleKeyframe
}

// IsRoot reports whether the node has no parent.
func (n *RSMNode) IsRoot() bool {
	return n.Parent == "" || n.Parent == n.Name
}

// RSMVolumeBox represents a bounding volume box.
type RSMVolumeBox struct {
	Size     [3]float32
	Position [3]float32
	Rotation [3]float32
	Flag     int32
}

// RSM represents a parsed RSM (Resource Model) file.
type RSM struct {
	Version     RSMVersion
	AnimLength  int32
	Shading     RSMShadingType
	Alpha       float32 // 0-1
	Textures    []string
	RootNode    string
	Nodes       []RSMNode
	VolumeBoxes []RSMVolumeBox
}

// rsmReader reads little-endian fields and remembers the first failure so
// the parser can check once per section.
type rsmReader struct {
	r   *bytes.Reader
	err error
}

func (rr *rsmReader) read(v any) {
	if rr.err != nil {
		return
	}
	if err := binary.Read(rr.r, binary.LittleEndian, v); err != nil {
		rr.err = ErrTruncatedRSMData
	}
}

func (rr *rsmReader) count(limit int32) int32 {
	var n int32
	rr.read(&n)
	if n <= 0 || n >= limit {
		return 0
	}
	return n
}

func (rr *rsmReader) name() string {
	buf := make([]byte, rsmNameLen)
	if rr.err == nil {
		if _, err := io.ReadFull(rr.r, buf); err != nil {
			rr.err = ErrTruncatedRSMData
		}
	}
	return encoding.FixedStringToUTF8(buf)
}

func (rr *rsmReader) skip(n int64) {
	if rr.err != nil {
		return
	}
	if int64(rr.r.Len()) < n {
		rr.err = ErrTruncatedRSMData
		return
	}
	_, _ = rr.r.Seek(n, 1)
}

// ParseRSM parses RSM data from a byte slice.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 14 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	rr := &rsmReader{r: bytes.NewReader(data[4:])}
	rsm := &RSM{}
	rr.read(&rsm.Version.Major)
	rr.read(&rsm.Version.Minor)

	if rsm.Version.Major < 1 || rsm.Version.Major > 2 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	rr.read(&rsm.AnimLength)
	rr.read(&rsm.Shading)

	rsm.Alpha = 1.0
	if rsm.Version.AtLeast(1, 4) {
		var alpha uint8
		rr.read(&alpha)
		rsm.Alpha = float32(alpha) / 255.0
	}

	// reserved
	rr.skip(16)

	textureCount := rr.count(rsmMaxItems)
	rsm.Textures = make([]string, textureCount)
	for i := range rsm.Textures {
		rsm.Textures[i] = rr.name()
	}

	rsm.RootNode = rr.name()
	if rr.err != nil {
		return nil, rr.err
	}

	var nodeCount int32
	rr.read(&nodeCount)
	if rr.err != nil {
		return nil, rr.err
	}
	if nodeCount < 0 || nodeCount > rsmMaxNodes {
		return nil, ErrInvalidNodeCount
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		parseRSMNode(rr, rsm.Version, &rsm.Nodes[i])
		if rr.err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, rr.err)
		}
	}

	// Volume boxes are optional trailing data.
	if rr.r.Len() >= 4 {
		boxCount := rr.count(rsmMaxBoxes)
		rsm.VolumeBoxes = make([]RSMVolumeBox, boxCount)
		for i := range rsm.VolumeBoxes {
			box := &rsm.VolumeBoxes[i]
			rr.read(&box.Size)
			rr.read(&box.Position)
			rr.read(&box.Rotation)
			if rsm.Version.AtLeast(1, 3) {
				rr.read(&box.Flag)
			}
		}
		if rr.err != nil {
			rsm.VolumeBoxes = nil
		}
	}

	return rsm, nil
}

func parseRSMNode(rr *rsmReader, version RSMVersion, node *RSMNode) {
	node.Name = rr.name()
	node.Parent = rr.name()

	if n := rr.count(rsmMaxTexIDs); n > 0 {
		node.TextureIDs = make([]int32, n)
		rr.read(node.TextureIDs)
	}

	rr.read(&node.Matrix)
	rr.read(&node.Offset)
	rr.read(&node.Position)
	rr.read(&node.RotAngle)
	rr.read(&node.RotAxis)
	rr.read(&node.Scale)

	if n := rr.count(rsmMaxItems); n > 0 {
		node.Vertices = make([][3]float32, n)
		rr.read(node.Vertices)
	}

	if n := rr.count(rsmMaxItems); n > 0 {
		node.TexCoords = make([]RSMTexCoord, n)
		for i := range node.TexCoords {
			tc := &node.TexCoords[i]
			if version.AtLeast(1, 2) {
				rr.read(&tc.Color)
			} else {
				tc.Color = [4]uint8{255, 255, 255, 255}
			}
			rr.read(&tc.U)
			rr.read(&tc.V)
		}
	}

	if n := rr.count(rsmMaxItems); n > 0 {
		node.Faces = make([]RSMFace, n)
		for i := range node.Faces {
			face := &node.Faces[i]
			rr.read(&face.VertexIDs)
			rr.read(&face.TexCoordIDs)
			rr.read(&face.TextureID)
			rr.read(&face.Padding)
			rr.read(&face.TwoSide)
			if version.AtLeast(1, 2) {
				rr.read(&face.SmoothGroup)
			}
		}
	}

	if !version.AtLeast(1, 5) {
		if n := rr.count(rsmMaxKeys); n > 0 {
			node.PosKeys = make([]RSMPosKeyframe, n)
			rr.read(node.PosKeys)
		}
	}

	if n := rr.count(rsmMaxKeys); n > 0 {
		node.RotKeys = make([]RSMRotKeyframe, n)
		rr.read(node.RotKeys)
	}

	if version.AtLeast(1, 5) {
		if n := rr.count(rsmMaxKeys); n > 0 {
			node.ScaleKeys = make([]RSMScaleKeyframe, n)
			rr.read(node.ScaleKeys)
		}
	}
}

// ParseRSMFile parses an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// GetTotalFaceCount returns the total number of faces across all nodes.
func (rsm *RSM) GetTotalFaceCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Faces)
	}
	return total
}

// GetNodeByName returns the first node with the given name, or nil.
func (rsm *RSM) GetNodeByName(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// HasAnimation returns true if the model has any animation keyframes.
func (rsm *RSM) HasAnimation() bool {
	for _, node := range rsm.Nodes {
		if len(node.PosKeys) > 0 || len(node.RotKeys) > 0 || len(node.ScaleKeys) > 0 {
			return true
		}
	}
	return false
}
