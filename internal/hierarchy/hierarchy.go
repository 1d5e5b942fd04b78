// Package hierarchy flattens the nested employee org tree into the lookup
// structures the rest of the pipeline works with. The Index is built once
// per run and passed by reference; nothing else duplicates hierarchy data.
package hierarchy

import (
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"strings"

	"teamcal/internal/model"
)

// RawNode mirrors one entry of the employees JSON file.
type RawNode struct {
	Name     string    `json:"name"`
	Location string    `json:"location"`
	Reports  []RawNode `json:"reports"`
}

// Node is one flattened employee. ID is the normalized display name and is
// unique across the forest; ParentID is empty for top-level nodes.
type Node struct {
	ID          string
	DisplayName string
	Location    string
	ParentID    string
	ChildIDs    []string
}

// Index holds the canonical employee set for a run.
type Index struct {
	roots      []string
	byID       map[string]*Node
	byLocation map[string][]string
	locations  []string // distinct, input order
}

// NormalizeID derives the stable employee identifier from a display name:
// trimmed, inner whitespace collapsed, case-folded.
func NormalizeID(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// LoadFile reads the employees JSON file and builds an Index.
func LoadFile(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading employees file: %w", err)
	}
	var roots []RawNode
	if err := json.Unmarshal(data, &roots); err != nil {
		return nil, fmt.Errorf("parsing employees file: %w", err)
	}
	return New(roots)
}

// New builds an Index from the nested employee forest. It fails with a
// ValidationError on duplicate IDs or a cycle in the built child graph.
func New(roots []RawNode) (*Index, error) {
	x := &Index{
		byID:       make(map[string]*Node),
		byLocation: make(map[string][]string),
	}

	var add func(raw RawNode, parentID string) (string, error)
	add = func(raw RawNode, parentID string) (string, error) {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			return "", &model.ValidationError{Reason: "employee with empty name"}
		}
		id := NormalizeID(name)
		if _, dup := x.byID[id]; dup {
			return "", &model.ValidationError{Reason: "duplicate employee id " + id}
		}
		node := &Node{
			ID:          id,
			DisplayName: name,
			Location:    strings.TrimSpace(raw.Location),
			ParentID:    parentID,
		}
		x.byID[id] = node
		if node.Location != "" {
			if _, seen := x.byLocation[node.Location]; !seen {
				x.locations = append(x.locations, node.Location)
			}
			x.byLocation[node.Location] = append(x.byLocation[node.Location], id)
		}
		for _, child := range raw.Reports {
			childID, err := add(child, id)
			if err != nil {
				return "", err
			}
			node.ChildIDs = append(node.ChildIDs, childID)
		}
		return id, nil
	}

	for _, raw := range roots {
		id, err := add(raw, "")
		if err != nil {
			return nil, err
		}
		x.roots = append(x.roots, id)
	}

	if err := x.checkAcyclic(); err != nil {
		return nil, err
	}
	return x, nil
}

// checkAcyclic walks the child graph depth-first with an on-stack marker.
// The nested input cannot express a cycle directly, but the invariant is
// what downstream traversal depends on, so it is verified here.
func (x *Index) checkAcyclic() error {
	const (
		onStack = 1
		done    = 2
	)
	state := make(map[string]int, len(x.byID))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case onStack:
			return &model.ValidationError{Reason: "cycle through employee " + id}
		case done:
			return nil
		}
		state[id] = onStack
		for _, child := range x.byID[id].ChildIDs {
			if err := visit(child); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for _, root := range x.roots {
		if err := visit(root); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of employees.
func (x *Index) Len() int { return len(x.byID) }

// Get returns the node for id.
func (x *Index) Get(id string) (*Node, bool) {
	n, ok := x.byID[id]
	return n, ok
}

// ByName resolves a display name to a node, exact first and then
// case-insensitively via the normalized ID.
func (x *Index) ByName(name string) (*Node, bool) {
	n, ok := x.byID[NormalizeID(name)]
	return n, ok
}

// Locations returns the distinct location codes in input order.
func (x *Index) Locations() []string {
	out := make([]string, len(x.locations))
	copy(out, x.locations)
	return out
}

// InLocation returns the employee IDs for a location code.
func (x *Index) InLocation(loc string) []string {
	ids := x.byLocation[loc]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Path returns the ancestor chain for id, from root down to the node's
// parent. Empty for a top-level node.
func (x *Index) Path(id string) []string {
	var rev []string
	for cur := x.byID[id]; cur != nil && cur.ParentID != ""; cur = x.byID[cur.ParentID] {
		rev = append(rev, cur.ParentID)
	}
	out := make([]string, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}

// Depth returns how many ancestors id has; top-level nodes are depth 0.
func (x *Index) Depth(id string) int {
	return len(x.Path(id))
}

// All returns a restartable pre-order sequence over the forest. Siblings
// keep their input order, which fixes grid row order deterministically.
func (x *Index) All() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		var walk func(id string) bool
		walk = func(id string) bool {
			n := x.byID[id]
			if !yield(n) {
				return false
			}
			for _, child := range n.ChildIDs {
				if !walk(child) {
					return false
				}
			}
			return true
		}
		for _, root := range x.roots {
			if !walk(root) {
				return
			}
		}
	}
}
