package partition

import (
	"image/color"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonad/outbreak-simulation/internal/entropy"
	"github.com/lemonad/outbreak-simulation/internal/geometry"
)

func buildTestTree(t *testing.T, width, height int, seed int64) *Tree {
	t.Helper()
	tree, err := New(width, height, entropy.NewRand(seed))
	require.NoError(t, err)
	return tree
}

func TestNew_RejectsNonPositiveDomain(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"zero width", 0, 10},
		{"zero height", 10, 0},
		{"negative width", -3, 10},
		{"negative both", -1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.width, tt.height, entropy.NewRand(1))
			assert.ErrorIs(t, err, ErrInvalidDomain)
		})
	}
}

func TestNew_SmallDomainIsSingleLeaf(t *testing.T) {
	for _, size := range [][2]int{{1, 1}, {2, 3}, {4, 4}, {3, 4}} {
		tree := buildTestTree(t, size[0], size[1], 5)
		leaves := tree.Leaves()
		require.Len(t, leaves, 1, "domain %v", size)
		assert.Same(t, tree.Root, leaves[0])
		assert.Equal(t, geometry.NewRect(0, 0, size[0], size[1]), leaves[0].Rect)
	}
}

func TestLeaves_TileDomainExactly(t *testing.T) {
	sizes := [][2]int{{5, 5}, {10, 7}, {33, 12}, {3, 40}, {64, 64}}
	for _, size := range sizes {
		for seed := int64(1); seed <= 5; seed++ {
			tree := buildTestTree(t, size[0], size[1], seed)
			domain := tree.Root.Rect

			covered := make(map[geometry.Point]int)
			for _, leaf := range tree.Leaves() {
				assert.GreaterOrEqual(t, leaf.Rect.Width(), 1)
				assert.GreaterOrEqual(t, leaf.Rect.Height(), 1)
				for _, p := range leaf.Points() {
					covered[p]++
				}
			}

			assert.Len(t, covered, domain.Area(), "size %v seed %d: gaps in tiling", size, seed)
			for p, n := range covered {
				assert.Equal(t, 1, n, "size %v seed %d: point %v covered %d times", size, seed, p, n)
				assert.True(t, domain.Contains(p))
			}
		}
	}
}

func TestSplit_ChildrenTileParent(t *testing.T) {
	tree := buildTestTree(t, 50, 30, 11)

	for _, node := range tree.Nodes() {
		if node.IsLeaf() {
			continue
		}
		require.NotNil(t, node.Left)
		require.NotNil(t, node.Right)
		assert.Equal(t, node.Level+1, node.Left.Level)
		assert.Equal(t, node.Level+1, node.Right.Level)
		assert.Equal(t, node.Rect.Area(), node.Left.Rect.Area()+node.Right.Rect.Area())

		l, r := node.Left.Rect, node.Right.Rect
		sameColumns := l.XMin == r.XMin && l.XMax == r.XMax
		sameRows := l.YMin == r.YMin && l.YMax == r.YMax
		assert.True(t, sameColumns || sameRows, "children of %v are not a straight cut", node.Rect)
		if sameColumns {
			assert.Equal(t, l.YMax+1, r.YMin)
			assert.GreaterOrEqual(t, l.Height(), MinSize)
			assert.GreaterOrEqual(t, r.Height(), MinSize)
		} else {
			assert.Equal(t, l.XMax+1, r.XMin)
			assert.GreaterOrEqual(t, l.Width(), MinSize)
			assert.GreaterOrEqual(t, r.Width(), MinSize)
		}
	}
}

func TestLeaves_HaveMinimumExtent(t *testing.T) {
	tree := buildTestTree(t, 40, 40, 3)
	for _, leaf := range tree.Leaves() {
		assert.GreaterOrEqual(t, leaf.Rect.Width(), MinSize)
		assert.GreaterOrEqual(t, leaf.Rect.Height(), MinSize)
	}
}

func TestLeaves_StableAcrossCalls(t *testing.T) {
	tree := buildTestTree(t, 20, 20, 9)

	first := tree.Leaves()
	second := tree.Leaves()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Same(t, first[i], second[i])
		assert.Equal(t, uint8(0xff), first[i].Color.A, "leaf colour should be assigned")
	}
}

func TestNew_DeterministicForSeed(t *testing.T) {
	a := buildTestTree(t, 30, 25, 1234)
	b := buildTestTree(t, 30, 25, 1234)

	la, lb := a.Leaves(), b.Leaves()
	require.Equal(t, len(la), len(lb))
	for i := range la {
		assert.Equal(t, la[i].Rect, lb[i].Rect)
		assert.Equal(t, la[i].Level, lb[i].Level)
		assert.Equal(t, la[i].Color, lb[i].Color)
	}
}

func TestRelativeDistance_Properties(t *testing.T) {
	tree := buildTestTree(t, 37, 21, 77)
	leaves := tree.Leaves()
	require.Greater(t, len(leaves), 1)

	for _, a := range leaves {
		assert.Zero(t, tree.RelativeDistance(a, a))
		for _, b := range leaves {
			d := tree.RelativeDistance(a, b)
			assert.GreaterOrEqual(t, d, 0.0)
			assert.LessOrEqual(t, d, 1.0)
			assert.Equal(t, d, tree.RelativeDistance(b, a))
		}
	}
}

func TestRelativeDistance_KnownValue(t *testing.T) {
	tree := buildTestTree(t, 3, 4, 1)
	a := &Node{Rect: geometry.NewRect(0, 0, 1, 1)}
	b := &Node{Rect: geometry.NewRect(3, 4, 1, 1)}

	// Centers 5 apart on a 3x4 root whose diagonal is also 5.
	assert.InDelta(t, 1.0, tree.RelativeDistance(a, b), 1e-9)
}

func TestSplit_ElongatedRectangleIsCutAcrossLongAxis(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		tree := buildTestTree(t, 40, 6, seed)
		require.False(t, tree.Root.IsLeaf())
		// A 40x6 root is too wide, so the first cut must be vertical.
		assert.Equal(t, tree.Root.Left.Rect.Height(), 6)
		assert.Equal(t, tree.Root.Right.Rect.Height(), 6)
	}
}

func TestLeaves_PaletteAlternatesByVisitParity(t *testing.T) {
	tree := buildTestTree(t, 30, 20, 6)
	leaves := tree.Leaves()
	require.Greater(t, len(leaves), 2)

	inPalette := func(p []color.RGBA, c color.RGBA) bool {
		return slices.Contains(p, c)
	}

	// Replay the depth-first visit order; every visited node advances parity.
	wantWarm := make(map[*Node]bool)
	stack := []*Node{tree.Root}
	for visited := 0; len(stack) > 0; visited++ {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node.IsLeaf() {
			wantWarm[node] = visited%2 == 1
			continue
		}
		stack = append(stack, node.Left, node.Right)
	}
	require.Len(t, wantWarm, len(leaves))

	cool, warm := 0, 0
	for _, leaf := range leaves {
		if wantWarm[leaf] {
			assert.True(t, inPalette(warmPalette, leaf.Color), "leaf %v should use the warm ramp", leaf.Rect)
			warm++
		} else {
			assert.True(t, inPalette(coolPalette, leaf.Color), "leaf %v should use the cool ramp", leaf.Rect)
			cool++
		}
		assert.Equal(t, uint8(0xff), leaf.Color.A)
	}
	assert.Positive(t, cool)
	assert.Positive(t, warm)
}

func TestLeaves_SingleLeafUsesCoolPalette(t *testing.T) {
	tree := buildTestTree(t, 4, 4, 1)
	leaves := tree.Leaves()
	require.Len(t, leaves, 1)
	assert.Contains(t, coolPalette, leaves[0].Color)
}
