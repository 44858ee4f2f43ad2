// Package partition carves the population domain into social regions with a
// randomized binary space partition. Leaves are the irreducible groups whose
// members all contact one another; the tree shape drives inter-group distance.
package partition

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/lemonad/outbreak-simulation/internal/geometry"
)

// Split constraints.
const (
	MinSize     = 2    // Minimum extent of a region along the axis it was cut on
	AspectLimit = 1.25 // Width:height (or height:width) ratio that forces the cut orientation
)

// ErrInvalidDomain is returned for a non-positive domain width or height.
var ErrInvalidDomain = errors.New("invalid domain size")

// Node is one region of the partition. It owns zero or two children whose
// rectangles tile its own exactly.
type Node struct {
	Rect  geometry.Rect `json:"rect"`
	Level int           `json:"level"`
	Color color.RGBA    `json:"color"` // Display aid, set when leaves are first enumerated
	Left  *Node         `json:"-"`
	Right *Node         `json:"-"`
}

// IsLeaf returns true if the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// Center returns the center point of the node's rectangle.
func (n *Node) Center() geometry.Point {
	return n.Rect.Center()
}

// Points returns every integer point covered by the node.
func (n *Node) Points() []geometry.Point {
	return n.Rect.Points()
}

func newNode(x, y, width, height, level int) *Node {
	return &Node{
		Rect:  geometry.NewRect(x, y, width, height),
		Level: level,
	}
}

// split recursively subdivides the node until every candidate cut would leave
// a side narrower than MinSize.
func (n *Node) split(rng *rand.Rand) {
	if !n.IsLeaf() {
		return
	}

	// The coin is always drawn so the random stream does not depend on shape.
	horizontal := rng.IntN(2) == 0
	if n.Rect.RatioWH() >= AspectLimit {
		horizontal = false
	} else if n.Rect.RatioHW() >= AspectLimit {
		horizontal = true
	}

	extent := n.Rect.Width()
	if horizontal {
		extent = n.Rect.Height()
	}
	if extent <= 2*MinSize {
		return
	}

	at := MinSize + rng.IntN(extent-2*MinSize+1)
	r := n.Rect
	if horizontal {
		// top / bottom
		n.Left = newNode(r.XMin, r.YMin, r.Width(), at, n.Level+1)
		n.Right = newNode(r.XMin, r.YMin+at, r.Width(), r.Height()-at, n.Level+1)
	} else {
		// left | right
		n.Left = newNode(r.XMin, r.YMin, at, r.Height(), n.Level+1)
		n.Right = newNode(r.XMin+at, r.YMin, r.Width()-at, r.Height(), n.Level+1)
	}

	n.Left.split(rng)
	n.Right.split(rng)
}

// Tree is a fully split partition of a width × height domain anchored at (0, 0).
type Tree struct {
	Root *Node

	rng    *rand.Rand
	leaves []*Node
}

// New builds and fully splits a partition tree. A domain whose cut axis is
// no longer than 2*MinSize (4x4 and smaller, for instance) is a single leaf.
func New(width, height int, rng *rand.Rand) (*Tree, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDomain, width, height)
	}
	if rng == nil {
		return nil, errors.New("partition: nil random source")
	}

	t := &Tree{
		Root: newNode(0, 0, width, height, 0),
		rng:  rng,
	}
	t.Root.split(rng)
	return t, nil
}

// Leaves returns every leaf exactly once. The first call walks the tree and
// colours the leaves; later calls return the same set.
func (t *Tree) Leaves() []*Node {
	if t.leaves == nil {
		t.leaves = t.collectLeaves()
	}
	out := make([]*Node, len(t.leaves))
	copy(out, t.leaves)
	return out
}

func (t *Tree) collectLeaves() []*Node {
	stack := []*Node{t.Root}
	var leaves []*Node
	visited := 0
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.IsLeaf() {
			palette := coolPalette
			if visited%2 == 1 {
				palette = warmPalette
			}
			node.Color = palette[t.rng.IntN(len(palette))]
			leaves = append(leaves, node)
		} else {
			stack = append(stack, node.Left, node.Right)
		}
		visited++
	}
	return leaves
}

// Nodes returns every node in the tree, parents before children.
func (t *Tree) Nodes() []*Node {
	var nodes []*Node
	queue := []*Node{t.Root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		nodes = append(nodes, node)
		if !node.IsLeaf() {
			queue = append(queue, node.Left, node.Right)
		}
	}
	return nodes
}

// Diagonal returns the length of the root rectangle's diagonal.
func (t *Tree) Diagonal() float64 {
	w := float64(t.Root.Rect.Width())
	h := float64(t.Root.Rect.Height())
	return math.Sqrt(w*w + h*h)
}

// RelativeDistance returns the distance between two nodes' centers as a
// fraction of the root diagonal, in [0, 1].
func (t *Tree) RelativeDistance(a, b *Node) float64 {
	return a.Center().Distance(b.Center()) / t.Diagonal()
}
