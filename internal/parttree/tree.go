// Package parttree holds the content-part tree of a message and the
// traversals that flatten it into a text body and attachment metadata.
//
// A Tree is an arena: parts are stored in a slice and refer to their
// children by index. Traversals walk it with an explicit stack, so their
// order and depth do not depend on the Go call stack.
package parttree

import (
	"errors"
	"fmt"
	"mime"
	"strings"
)

// Kind distinguishes payload-carrying leaves from containers.
type Kind int

const (
	KindLeaf Kind = iota
	KindContainer
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindContainer:
		return "container"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Well-known media types used by the traversals.
const (
	TypePlain = "text/plain"
	TypeHTML  = "text/html"
)

// Root is the arena index of every tree's root part.
const Root = 0

// ErrNotContainer is returned when a child is added to a leaf.
var ErrNotContainer = errors.New("parent part is not a container")

// Part is a single node of the tree.
type Part struct {
	Kind        Kind
	ContentType string

	// Data is the URL-safe base64 encoded payload. Empty means absent.
	Data string

	// Filename is empty when the part is not a named file.
	Filename string

	// Size is the payload size in bytes as reported by the transport,
	// or 0 when unknown.
	Size int64
}

// Leaf returns a payload-carrying part.
func Leaf(contentType, data string) Part {
	return Part{Kind: KindLeaf, ContentType: contentType, Data: data}
}

// Container returns a part that holds child parts.
func Container(contentType string) Part {
	return Part{Kind: KindContainer, ContentType: contentType}
}

// WithFile returns a copy of p carrying file metadata.
func (p Part) WithFile(filename string, size int64) Part {
	p.Filename = filename
	p.Size = size
	return p
}

// HasData reports whether the part carries an encoded payload.
func (p Part) HasData() bool {
	return p.Data != ""
}

// MediaType returns the lower-cased media type without parameters,
// e.g. "text/plain" for "Text/Plain; charset=UTF-8".
func (p Part) MediaType() string {
	mt, _, err := mime.ParseMediaType(p.ContentType)
	if err != nil {
		mt, _, _ = strings.Cut(p.ContentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// Tree is an arena of parts. Index Root is always present.
type Tree struct {
	parts    []Part
	children [][]int
}

// New creates a tree whose root is the given part.
func New(root Part) *Tree {
	return &Tree{
		parts:    []Part{root},
		children: [][]int{nil},
	}
}

// Add appends p as the last child of parent and returns its index.
func (t *Tree) Add(parent int, p Part) (int, error) {
	if parent < 0 || parent >= len(t.parts) {
		return -1, fmt.Errorf("parent index %d out of range", parent)
	}
	if t.parts[parent].Kind != KindContainer {
		return -1, fmt.Errorf("adding %s child to part %d: %w", p.ContentType, parent, ErrNotContainer)
	}

	idx := len(t.parts)
	t.parts = append(t.parts, p)
	t.children = append(t.children, nil)
	t.children[parent] = append(t.children[parent], idx)
	return idx, nil
}

// Part returns the part stored at idx.
func (t *Tree) Part(idx int) Part {
	return t.parts[idx]
}

// Children returns the child indexes of idx in document order.
// The returned slice must not be modified.
func (t *Tree) Children(idx int) []int {
	return t.children[idx]
}

// Len returns the number of parts in the tree.
func (t *Tree) Len() int {
	return len(t.parts)
}
