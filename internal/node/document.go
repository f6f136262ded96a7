package node

import (
	"encoding/json"
	"fmt"
)

// DocumentNode is the JSON form of a subtree.
type DocumentNode struct {
	ID      ID                `json:"id,omitempty"`
	Type    string            `json:"type"`
	Attrs   map[string]string `json:"attrs,omitempty"`
	Text    string            `json:"text,omitempty"`
	Content []DocumentNode    `json:"content,omitempty"`
}

// Attrs returns the declarative attributes of a grid or cell node, and the
// plugin attributes of a content node.
func (t *Tree) Attrs(id ID) (map[string]string, error) {
	n, err := t.lookup(id)
	if err != nil {
		return nil, err
	}
	switch n.Kind {
	case KindGrid:
		return GridAttrs(n.Grid)
	case KindCell:
		return CellAttrs(n.Cell), nil
	case KindContent:
		out := make(map[string]string, len(n.Content.Attrs))
		for k, v := range n.Content.Attrs {
			out[k] = v
		}
		return out, nil
	default:
		return map[string]string{}, nil
	}
}

// Encode converts the subtree rooted at id to its document form.
func (t *Tree) Encode(id ID) (DocumentNode, error) {
	n, err := t.lookup(id)
	if err != nil {
		return DocumentNode{}, err
	}
	attrs, err := t.Attrs(id)
	if err != nil {
		return DocumentNode{}, err
	}
	doc := DocumentNode{ID: n.ID, Type: n.Kind.String(), Attrs: attrs}
	if n.Kind == KindContent {
		doc.Type = n.Content.Type
		doc.Text = n.Content.Text
	}
	for _, c := range n.Children {
		child, err := t.Encode(c)
		if err != nil {
			return DocumentNode{}, err
		}
		doc.Content = append(doc.Content, child)
	}
	return doc, nil
}

// Decode builds a detached subtree from its document form and returns its
// root. Incoming IDs are ignored; fresh IDs are allocated. A decoded grid
// must carry exactly rows*columns cells.
func (t *Tree) Decode(doc DocumentNode) (ID, error) {
	switch doc.Type {
	case "document":
		return NoID, fmt.Errorf("cannot decode a document root into a tree")
	case "grid":
		props, err := ParseGridAttrs(doc.Attrs)
		if err != nil {
			return NoID, err
		}
		want := props.RowCount() * props.ColumnCount()
		if len(doc.Content) != want {
			return NoID, fmt.Errorf("grid has %d cells, want %d", len(doc.Content), want)
		}
		id := t.alloc(KindGrid)
		t.nodes[id].Grid = props
		for i, c := range doc.Content {
			if c.Type != "cell" {
				t.free(id)
				return NoID, fmt.Errorf("grid child %d has type %q, want cell", i, c.Type)
			}
			if err := t.decodeChild(id, c); err != nil {
				t.free(id)
				return NoID, err
			}
		}
		return id, nil
	case "cell":
		props, err := ParseCellAttrs(doc.Attrs)
		if err != nil {
			return NoID, err
		}
		if len(doc.Content) != 1 {
			return NoID, fmt.Errorf("cell has %d content roots, want 1", len(doc.Content))
		}
		id := t.alloc(KindCell)
		t.nodes[id].Cell = props
		for _, c := range doc.Content {
			if err := t.decodeChild(id, c); err != nil {
				t.free(id)
				return NoID, err
			}
		}
		return id, nil
	case "":
		return NoID, fmt.Errorf("node without type")
	default:
		id := t.NewContent(doc.Type, doc.Text)
		if len(doc.Attrs) > 0 {
			t.nodes[id].Content.Attrs = make(map[string]string, len(doc.Attrs))
			for k, v := range doc.Attrs {
				t.nodes[id].Content.Attrs[k] = v
			}
		}
		return id, nil
	}
}

func (t *Tree) decodeChild(parent ID, doc DocumentNode) error {
	child, err := t.Decode(doc)
	if err != nil {
		return err
	}
	return t.Append(parent, child)
}

// MarshalDocument encodes the subtree rooted at id as JSON.
func (t *Tree) MarshalDocument(id ID) ([]byte, error) {
	doc, err := t.Encode(id)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// UnmarshalDocument decodes JSON produced by MarshalDocument into a detached
// subtree.
func (t *Tree) UnmarshalDocument(data []byte) (ID, error) {
	var doc DocumentNode
	if err := json.Unmarshal(data, &doc); err != nil {
		return NoID, fmt.Errorf("parse document: %w", err)
	}
	return t.Decode(doc)
}
