package export

import (
	"fmt"
	"sort"

	"github.com/Faultbox/pcexport/pkg/scene"
)

// NodeRecord is one entry of the model's nodes list. Rotation is Euler XYZ
// in degrees.
type NodeRecord struct {
	Name     string     `json:"name"`
	Position [3]float32 `json:"position"`
	Rotation [3]float32 `json:"rotation"`
	Scale    [3]float32 `json:"scale"`
}

// rootNode is the synthetic world root every document starts with.
var rootNode = NodeRecord{Name: "RootNode", Scale: [3]float32{1, 1, 1}}

// Instance pairs a sub-mesh index with one object that uses it.
type Instance struct {
	Node *scene.Node
	Mesh int
}

// Enumerate lists instances sub-mesh by sub-mesh. The position of an
// instance in the result, plus one, is its node id.
func Enumerate(subs []*SubMesh) []Instance {
	var out []Instance
	for i, sub := range subs {
		for _, n := range sub.Instances {
			out = append(out, Instance{Node: n, Mesh: i})
		}
	}
	return out
}

// FlattenHierarchy builds node records and parent indices for instances.
// The returned parents omit the root entry. Parents are resolved by name
// against the flattened list; the first match wins and a parent outside the
// list makes the node a child of the root.
func FlattenHierarchy(instances []Instance, scaleFromTransform bool) ([]NodeRecord, []int, error) {
	nodes := make([]NodeRecord, len(instances))
	firstByName := make(map[string]int, len(instances))

	for i, inst := range instances {
		n := inst.Node
		if err := checkAcyclic(n); err != nil {
			return nil, nil, err
		}
		nodes[i] = nodeRecord(n, scaleFromTransform)
		if _, ok := firstByName[n.Name]; !ok {
			firstByName[n.Name] = i
		}
	}

	parents := make([]int, len(instances))
	for i, inst := range instances {
		p := inst.Node.Parent
		if p == nil {
			continue
		}
		if j, ok := firstByName[p.Name]; ok {
			parents[i] = j + 1
		}
	}
	return nodes, parents, nil
}

func nodeRecord(n *scene.Node, scaleFromTransform bool) NodeRecord {
	rec := NodeRecord{Name: n.Name, Scale: n.Scale}
	if n.Parent == nil {
		// roots sit at the origin; the document root carries the placement
		if scaleFromTransform {
			rec.Scale = [3]float32{1, 1, 1}
		}
		return rec
	}
	t, euler, s := n.Local.Decompose()
	rec.Position = t.Array()
	rec.Rotation = euler.Degrees().Array()
	if scaleFromTransform {
		rec.Scale = s.Array()
	}
	return rec
}

// checkAcyclic walks the parent chain of n.
func checkAcyclic(n *scene.Node) error {
	seen := map[*scene.Node]bool{n: true}
	for p := n.Parent; p != nil; p = p.Parent {
		if seen[p] {
			return fmt.Errorf("node %q: %w through %q", n.Name, ErrCyclicHierarchy, p.Name)
		}
		seen[p] = true
	}
	return nil
}

// Descendants returns every object below root, children before their
// parents, followed by root itself.
func Descendants(root *scene.Node) ([]*scene.Node, error) {
	var out []*scene.Node
	seen := make(map[*scene.Node]bool)
	var walk func(n *scene.Node) error
	walk = func(n *scene.Node) error {
		seen[n] = true
		for _, c := range n.Children {
			if seen[c] {
				return fmt.Errorf("node %q: %w at child %q", n.Name, ErrCyclicHierarchy, c.Name)
			}
			if err := walk(c); err != nil {
				return err
			}
			out = append(out, c)
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return append(out, root), nil
}

// ParentFirst orders objects by depth, keeping scene order among objects of
// equal depth, so every parent precedes its children.
func ParentFirst(objects []*scene.Node) []*scene.Node {
	out := append([]*scene.Node(nil), objects...)
	depth := make(map[*scene.Node]int, len(out))
	for _, n := range out {
		d := 0
		for p := n.Parent; p != nil && d <= len(out); p = p.Parent {
			d++
		}
		depth[n] = d
	}
	sort.SliceStable(out, func(i, j int) bool {
		return depth[out[i]] < depth[out[j]]
	})
	return out
}
