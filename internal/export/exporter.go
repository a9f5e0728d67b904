// Package export converts a scene into PlayCanvas JSON model documents,
// material files and copied textures.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/pcexport/pkg/scene"
)

// Paths are the output locations of an export run.
type Paths struct {
	Mesh     string
	Material string
	Image    string
	// Name is the hierarchy name used when objects are not separated.
	Name string
}

// PathsFor derives output paths from the target file. The sub directories
// are joined onto the target's directory and the name is the file name up
// to its first dot.
func PathsFor(target, meshDir, materialDir, imageDir string) Paths {
	base := filepath.Dir(target)
	name, _, _ := strings.Cut(filepath.Base(target), ".")
	return Paths{
		Mesh:     filepath.Join(base, meshDir),
		Material: filepath.Join(base, materialDir),
		Image:    filepath.Join(base, imageDir),
		Name:     name,
	}
}

// Options control an export run.
type Options struct {
	// SeparateObjects writes one document per top-level object.
	SeparateObjects bool
	// PrettyJSON indents every written document.
	PrettyJSON bool
	// ScaleFromTransform takes node scale from the local transform instead
	// of the object's scale property.
	ScaleFromTransform bool
}

// Hierarchy is a set of objects written into one document.
type Hierarchy struct {
	Name    string
	Objects []*scene.Node
}

// HierarchyReport describes what one hierarchy export wrote.
type HierarchyReport struct {
	Name      string
	Document  string
	Mapping   string
	Materials []string
	Textures  []string
	SubMeshes int
	Nodes     int
	Vertices  int
	Triangles int
	Err       error
}

// Report collects the results of a run.
type Report struct {
	Hierarchies []HierarchyReport
}

// Failed returns the number of hierarchies that did not export.
func (r *Report) Failed() int {
	n := 0
	for _, h := range r.Hierarchies {
		if h.Err != nil {
			n++
		}
	}
	return n
}

// safeName turns a host name into a single file name element so it cannot
// leave or nest below the output directories.
func safeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "_" + name
	}
	return name
}

// exportRun is the state the hierarchies of one run share. Material and
// image file names live in directories common to every document, so they
// are allocated once per run.
type exportRun struct {
	mats     *MaterialSet
	textures *textureCopier
}

func (e *Exporter) newRun() *exportRun {
	return &exportRun{mats: NewMaterialSet(), textures: newTextureCopier(e.Paths)}
}

// Exporter runs exports against a scene provider.
type Exporter struct {
	Paths   Paths
	Options Options
	Log     *zap.Logger
}

// New creates an exporter. A nil logger discards output.
func New(paths Paths, opts Options, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{Paths: paths, Options: opts, Log: log}
}

// Run exports every hierarchy of the provider. A failing hierarchy does not
// stop the others; all failures are returned together. Cancellation is
// only observed between hierarchies.
func (e *Exporter) Run(ctx context.Context, p scene.Provider) (*Report, error) {
	for _, dir := range []string{e.Paths.Mesh, e.Paths.Material, e.Paths.Image} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	hierarchies, err := e.Hierarchies(p)
	if err != nil {
		return nil, err
	}

	run := e.newRun()
	report := &Report{}
	var errs error
	for i, h := range hierarchies {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		e.Log.Info("exporting hierarchy",
			zap.String("name", h.Name),
			zap.Int("index", i+1),
			zap.Int("total", len(hierarchies)))

		hr, err := e.exportHierarchy(h, run)
		if err != nil {
			err = fmt.Errorf("hierarchy %q: %w", h.Name, err)
			e.Log.Error("hierarchy export failed", zap.String("name", h.Name), zap.Error(err))
			hr.Err = err
			errs = multierr.Append(errs, err)
		}
		report.Hierarchies = append(report.Hierarchies, *hr)
	}
	return report, errs
}

// Hierarchies splits the provider's objects into export units. The selection
// is used when it is not empty, otherwise every object.
func (e *Exporter) Hierarchies(p scene.Provider) ([]Hierarchy, error) {
	objects := p.Selection()
	if len(objects) == 0 {
		objects = p.Objects()
	}

	if !e.Options.SeparateObjects {
		return []Hierarchy{{Name: e.Paths.Name, Objects: objects}}, nil
	}

	var out []Hierarchy
	seen := make(map[string]bool)
	for _, obj := range objects {
		if obj.Parent != nil {
			continue
		}
		members, err := Descendants(obj)
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(safeName(obj.Name))
		if seen[key] {
			e.Log.Warn("duplicate top-level name, later document overwrites earlier",
				zap.String("name", obj.Name))
		}
		seen[key] = true
		out = append(out, Hierarchy{Name: obj.Name, Objects: members})
	}
	return out, nil
}

// exportHierarchy writes the mapping, dummy material, materials, textures
// and main document of one hierarchy, in that order. Materials and textures
// already written earlier in the run are referenced, not rewritten. The
// returned report is never nil.
func (e *Exporter) exportHierarchy(h Hierarchy, run *exportRun) (*HierarchyReport, error) {
	hr := &HierarchyReport{Name: h.Name}
	log := e.Log.With(zap.String("hierarchy", h.Name))
	base := safeName(h.Name)

	for _, obj := range h.Objects {
		if err := checkAcyclic(obj); err != nil {
			return hr, err
		}
	}
	objects := ParentFirst(h.Objects)
	uv := NewUVRegistry(objects)

	log.Info("generating meshes", zap.Strings("uvLayers", uv.Names()))
	subs, err := splitObjects(objects)
	if err != nil {
		return hr, err
	}
	buffers := make([]VertexBuffer, len(subs))
	meshes := make([]*MeshRecord, len(subs))
	for i, sub := range subs {
		buffers[i], meshes[i] = Flatten(sub, uv, i)
		hr.Vertices += buffers[i].Corners()
		hr.Triangles += sub.TriangleCount()
	}
	hr.SubMeshes = len(subs)

	instances := Enumerate(subs)
	nodes, parents, err := FlattenHierarchy(instances, e.Options.ScaleFromTransform)
	if err != nil {
		return hr, err
	}
	hr.Nodes = len(nodes)

	log.Info("exporting mappings")
	files, err := e.writeMapping(base, subs, instances, run, hr)
	if err != nil {
		return hr, err
	}

	log.Info("exporting materials")
	copied := len(run.textures.files)
	for _, f := range files {
		if f.written || f.Material == nil {
			continue
		}
		desc := Descriptor(f.Material)
		if err := run.textures.apply(desc, f.Material, uv, log); err != nil {
			return hr, err
		}
		path := filepath.Join(e.Paths.Material, f.FileName)
		if err := writeJSON(path, desc, e.Options.PrettyJSON); err != nil {
			return hr, err
		}
		f.written = true
		hr.Materials = append(hr.Materials, path)
	}
	hr.Textures = append([]string(nil), run.textures.files[copied:]...)

	log.Info("writing document")
	doc := Assemble(nodes, parents, instances, buffers, meshes)
	hr.Document = filepath.Join(e.Paths.Mesh, base+".json")
	if err := writeJSON(hr.Document, doc, e.Options.PrettyJSON); err != nil {
		return hr, err
	}
	return hr, nil
}

// writeMapping writes the mapping document, plus the dummy material when a
// part needs it and no earlier hierarchy wrote it. It returns the distinct
// material files the mapping references, in first-use order.
func (e *Exporter) writeMapping(base string, subs []*SubMesh, instances []Instance, run *exportRun, hr *HierarchyReport) ([]*MaterialFile, error) {
	rel, err := filepath.Rel(e.Paths.Mesh, e.Paths.Material)
	if err != nil {
		rel = e.Paths.Material
	}

	var files []*MaterialFile
	seen := make(map[*MaterialFile]bool)
	mapping := Mapping{Mapping: make([]MappingEntry, len(instances))}
	for i, inst := range instances {
		f := run.mats.Add(subs[inst.Mesh].Material)
		mapping.Mapping[i] = MappingEntry{Path: filepath.ToSlash(filepath.Join(rel, f.FileName))}
		if !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}

	hr.Mapping = filepath.Join(e.Paths.Mesh, base+".mapping.json")
	if err := writeJSON(hr.Mapping, mapping, e.Options.PrettyJSON); err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.Material != nil || f.written {
			continue
		}
		path := filepath.Join(e.Paths.Material, f.FileName)
		if err := writeJSON(path, dummyDescriptor(), e.Options.PrettyJSON); err != nil {
			return nil, err
		}
		f.written = true
		hr.Materials = append(hr.Materials, path)
	}
	return files, nil
}

// splitObjects groups objects by mesh identity in first-seen order and
// splits every mesh. Objects without a mesh share one placeholder.
func splitObjects(objects []*scene.Node) ([]*SubMesh, error) {
	var order []*scene.Mesh
	users := make(map[scene.ID][]*scene.Node)
	var placeholder *scene.Mesh

	for _, obj := range objects {
		m := obj.Mesh
		if m == nil {
			if placeholder == nil {
				placeholder = PlaceholderMesh()
			}
			m = placeholder
		}
		if _, ok := users[m.ID]; !ok {
			order = append(order, m)
		}
		users[m.ID] = append(users[m.ID], obj)
	}

	var subs []*SubMesh
	for _, m := range order {
		parts, err := SplitMesh(m, users[m.ID])
		if err != nil {
			return nil, err
		}
		subs = append(subs, parts...)
	}
	return subs, nil
}
