package node

import "fmt"

// Tree is the arena. Slot i holds the node with ID i, or nil once removed.
type Tree struct {
	nodes []*Node
	root  ID
}

// NewTree creates a tree holding an empty document root.
func NewTree() *Tree {
	t := &Tree{}
	t.root = t.alloc(KindDocument)
	return t
}

// Root returns the document root.
func (t *Tree) Root() ID { return t.root }

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	n := 0
	for _, slot := range t.nodes {
		if slot != nil {
			n++
		}
	}
	return n
}

// Get returns the node for id.
func (t *Tree) Get(id ID) (*Node, bool) {
	if id < 0 || int(id) >= len(t.nodes) || t.nodes[id] == nil {
		return nil, false
	}
	return t.nodes[id], true
}

func (t *Tree) lookup(id ID) (*Node, error) {
	n, ok := t.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return n, nil
}

func (t *Tree) alloc(kind Kind) ID {
	id := ID(len(t.nodes))
	t.nodes = append(t.nodes, &Node{ID: id, Kind: kind, Parent: NoID})
	return id
}

// NewGrid allocates a detached grid node with no cells.
func (t *Tree) NewGrid(columns, rows []SizeToken) ID {
	id := t.alloc(KindGrid)
	t.nodes[id].Grid = NewGridProps(columns, rows)
	return id
}

// NewCell allocates a detached 1x1 cell with no content.
func (t *Tree) NewCell() ID {
	id := t.alloc(KindCell)
	t.nodes[id].Cell = &CellProps{SpanX: 1, SpanY: 1}
	return id
}

// NewContent allocates a detached content root.
func (t *Tree) NewContent(contentType, text string) ID {
	id := t.alloc(KindContent)
	t.nodes[id].Content = &ContentProps{Type: contentType, Text: text}
	return id
}

// Append adds child as the last child of parent.
func (t *Tree) Append(parent, child ID) error {
	p, err := t.lookup(parent)
	if err != nil {
		return err
	}
	return t.InsertAt(parent, len(p.Children), child)
}

// InsertAt inserts a detached child at position index of parent's children.
func (t *Tree) InsertAt(parent ID, index int, child ID) error {
	p, err := t.lookup(parent)
	if err != nil {
		return err
	}
	c, err := t.lookup(child)
	if err != nil {
		return err
	}
	if c.Parent != NoID {
		return fmt.Errorf("%w: %d", ErrAttached, child)
	}
	for cur := parent; cur != NoID; cur = t.nodes[cur].Parent {
		if cur == child {
			return fmt.Errorf("%w: %d", ErrCycle, child)
		}
	}
	if index < 0 || index > len(p.Children) {
		return fmt.Errorf("insert index %d out of range 0..%d", index, len(p.Children))
	}
	p.Children = append(p.Children, NoID)
	copy(p.Children[index+1:], p.Children[index:])
	p.Children[index] = child
	c.Parent = parent
	return nil
}

// Detach unlinks id from its parent, keeping the node and its subtree alive.
func (t *Tree) Detach(id ID) error {
	n, err := t.lookup(id)
	if err != nil {
		return err
	}
	if n.Parent == NoID {
		return nil
	}
	p := t.nodes[n.Parent]
	for i, c := range p.Children {
		if c == id {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	n.Parent = NoID
	return nil
}

// Remove detaches id and frees its whole subtree.
func (t *Tree) Remove(id ID) error {
	if id == t.root {
		return fmt.Errorf("cannot remove document root")
	}
	if err := t.Detach(id); err != nil {
		return err
	}
	t.free(id)
	return nil
}

func (t *Tree) free(id ID) {
	n := t.nodes[id]
	if n == nil {
		return
	}
	for _, c := range n.Children {
		t.free(c)
	}
	t.nodes[id] = nil
}

// IndexOf returns the position of child among parent's children.
func (t *Tree) IndexOf(parent, child ID) (int, bool) {
	p, ok := t.Get(parent)
	if !ok {
		return -1, false
	}
	for i, c := range p.Children {
		if c == child {
			return i, true
		}
	}
	return -1, false
}

// Walk visits id and its descendants depth-first. Returning false from fn
// skips the node's children.
func (t *Tree) Walk(id ID, fn func(*Node) bool) {
	n, ok := t.Get(id)
	if !ok {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		t.Walk(c, fn)
	}
}

// Attached reports whether id is reachable from the document root.
func (t *Tree) Attached(id ID) bool {
	for cur := id; ; {
		n, ok := t.Get(cur)
		if !ok {
			return false
		}
		if cur == t.root {
			return true
		}
		if n.Parent == NoID {
			return false
		}
		cur = n.Parent
	}
}

// TopLevelGrid returns the outermost grid that is id or one of its ancestors.
func (t *Tree) TopLevelGrid(id ID) (ID, error) {
	found := NoID
	for cur := id; cur != NoID; {
		n, err := t.lookup(cur)
		if err != nil {
			return NoID, err
		}
		if n.Kind == KindGrid {
			found = cur
		}
		cur = n.Parent
	}
	if found == NoID {
		return NoID, fmt.Errorf("node %d is not inside a grid", id)
	}
	return found, nil
}

// HostCell returns the cell whose content root is grid, if grid is nested.
func (t *Tree) HostCell(grid ID) (ID, bool) {
	n, ok := t.Get(grid)
	if !ok || n.Parent == NoID {
		return NoID, false
	}
	p := t.nodes[n.Parent]
	if p.Kind != KindCell {
		return NoID, false
	}
	return p.ID, true
}

// ContentRoot returns the single content child of a cell.
func (t *Tree) ContentRoot(cell ID) (ID, bool) {
	n, ok := t.Get(cell)
	if !ok || n.Kind != KindCell || len(n.Children) == 0 {
		return NoID, false
	}
	return n.Children[0], true
}
