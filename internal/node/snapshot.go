package node

import "fmt"

// Snapshot is a deep copy of a subtree: the root's properties and every
// descendant, keyed by their original IDs.
type Snapshot struct {
	Root  ID
	nodes []*Node
}

// Size returns the number of nodes captured.
func (s Snapshot) Size() int { return len(s.nodes) }

// Snapshot captures the subtree rooted at id.
func (t *Tree) Snapshot(id ID) (Snapshot, error) {
	if _, err := t.lookup(id); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Root: id}
	t.Walk(id, func(n *Node) bool {
		snap.nodes = append(snap.nodes, n.clone())
		return true
	})
	return snap, nil
}

// Restore replaces the subtree rooted at s.Root with the captured state. The
// root keeps its current parent; descendants created after the snapshot are
// freed and captured descendants come back under their original IDs.
func (t *Tree) Restore(s Snapshot) error {
	root, err := t.lookup(s.Root)
	if err != nil {
		return err
	}
	if len(s.nodes) == 0 || s.nodes[0].ID != s.Root {
		return fmt.Errorf("snapshot for %d is empty", s.Root)
	}

	current := make(map[ID]struct{})
	t.Walk(s.Root, func(n *Node) bool {
		current[n.ID] = struct{}{}
		return true
	})
	for _, captured := range s.nodes[1:] {
		if int(captured.ID) >= len(t.nodes) {
			return fmt.Errorf("snapshot node %d does not belong to this tree", captured.ID)
		}
		if _, inside := current[captured.ID]; !inside && t.nodes[captured.ID] != nil {
			return fmt.Errorf("snapshot node %d is live outside the restored subtree", captured.ID)
		}
	}

	for _, c := range root.Children {
		t.free(c)
	}
	parent := root.Parent
	for i, captured := range s.nodes {
		restored := captured.clone()
		if i == 0 {
			restored.Parent = parent
		}
		t.nodes[restored.ID] = restored
	}
	return nil
}
