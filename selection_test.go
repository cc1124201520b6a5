package canvas

import (
	"testing"

	"github.com/common-fate/canvas/pkg/geom"
	"github.com/common-fate/canvas/pkg/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelection_Modes(t *testing.T) {
	s := newSession(t)
	a := addNode(t, s, node.Task, 0, 0)
	b := addNode(t, s, node.Task, 200, 0)
	c := addNode(t, s, node.Task, 400, 0)

	require.True(t, s.Selection.SelectNode(a, Replace))
	s.Selection.SelectNode(b, Add)
	s.Selection.SelectNode(c, Add)
	assert.Equal(t, []string{a, b, c}, s.Selection.SelectedNodes())

	s.Selection.SelectNode(b, Toggle)
	assert.Equal(t, []string{a, c}, s.Selection.SelectedNodes())
	assert.False(t, s.Selection.IsNodeSelected(b))

	s.Selection.SelectNode(b, Toggle)
	assert.Equal(t, []string{a, c, b}, s.Selection.SelectedNodes())

	s.Selection.SelectNodes([]string{a, b}, Subtract)
	assert.Equal(t, []string{c}, s.Selection.SelectedNodes())

	s.Selection.SelectNodes([]string{b, b, "missing", a}, Replace)
	assert.Equal(t, []string{b, a}, s.Selection.SelectedNodes())

	assert.False(t, s.Selection.SelectNode("missing", Add))
	assert.Equal(t, 1, s.History.Size(), "selecting records no history")
}

func TestSelection_NodesAndConnections(t *testing.T) {
	s := newSession(t)
	a := addNode(t, s, node.Task, 0, 0)
	b := addNode(t, s, node.Task, 200, 0)
	ab := connect(t, s, a, b)

	s.Selection.SelectNode(a, Replace)
	s.Selection.SelectConnection(ab, Add)
	assert.Equal(t, []string{a}, s.Selection.SelectedNodes())
	assert.Equal(t, []string{ab}, s.Selection.SelectedConnections())

	s.Selection.SelectConnection(ab, Replace)
	assert.Empty(t, s.Selection.SelectedNodes(), "replacing the connection selection clears nodes")
	assert.True(t, s.Selection.IsConnectionSelected(ab))

	s.Selection.SelectNode(b, Replace)
	assert.Empty(t, s.Selection.SelectedConnections())

	s.Selection.SelectAll()
	assert.Equal(t, []string{a, b}, s.Selection.SelectedNodes())
	assert.Equal(t, []string{ab}, s.Selection.SelectedConnections())

	s.Selection.Clear()
	assert.NotNil(t, s.Selection.SelectedNodes())
	assert.Empty(t, s.Selection.SelectedNodes())
}

func TestSelection_InvertAndByType(t *testing.T) {
	s := newSession(t)
	start := addNode(t, s, node.Start, 0, 0)
	a := addNode(t, s, node.Task, 200, 0)
	b := addNode(t, s, node.Task, 400, 0)
	sa := connect(t, s, start, a)

	s.Selection.SelectNode(a, Replace)
	s.Selection.InvertSelection()
	assert.Equal(t, []string{start, b}, s.Selection.SelectedNodes())
	assert.Equal(t, []string{sa}, s.Selection.SelectedConnections())

	s.Selection.SelectByType(node.Task, Replace)
	assert.Equal(t, []string{a, b}, s.Selection.SelectedNodes())

	s.Selection.SelectByType(node.Start, Add)
	assert.Equal(t, []string{a, b, start}, s.Selection.SelectedNodes())
}

func TestSelection_Box(t *testing.T) {
	s := newSession(t)
	a := addNode(t, s, node.Task, 0, 0)
	b := addNode(t, s, node.Task, 0, 100)
	c := addNode(t, s, node.Task, 300, 0)

	_, ok := s.Selection.SelectionBox()
	assert.False(t, ok)
	assert.Nil(t, s.Selection.EndSelectionBox(Replace))

	// dragged from bottom right to top left
	s.Selection.StartSelectionBox(350, 200)
	s.Selection.UpdateSelectionBox(-10, -10)

	box, ok := s.Selection.SelectionBox()
	require.True(t, ok)
	assert.Equal(t, geom.Rect{X: -10, Y: -10, Width: 360, Height: 210}, box)

	inside := s.Selection.EndSelectionBox(Replace)
	assert.Equal(t, []string{a, b}, inside, "partly covered nodes are not selected")
	assert.Equal(t, []string{a, b}, s.Selection.SelectedNodes())

	_, ok = s.Selection.SelectionBox()
	assert.False(t, ok)

	s.Selection.StartSelectionBox(-10, 90)
	s.Selection.UpdateSelectionBox(200, 200)
	s.Selection.EndSelectionBox(Subtract)
	assert.Equal(t, []string{a}, s.Selection.SelectedNodes())

	s.Selection.StartSelectionBox(0, 0)
	s.Selection.UpdateSelectionBox(1000, 1000)
	s.Selection.CancelSelectionBox()
	assert.Equal(t, []string{a}, s.Selection.SelectedNodes())
	assert.NotContains(t, s.Selection.SelectedNodes(), c)
}

func TestSelection_Bounds(t *testing.T) {
	s := newSession(t)
	a := addNode(t, s, node.Task, 0, 0)
	b := addNode(t, s, node.Task, 200, 100)

	_, ok := s.Selection.Bounds()
	assert.False(t, ok)

	s.Selection.SelectNodes([]string{a, b}, Replace)
	got, ok := s.Selection.Bounds()
	require.True(t, ok)
	assert.Equal(t, geom.Rect{X: 0, Y: 0, Width: 350, Height: 160}, got.Rect)
	assert.Equal(t, geom.Point{X: 175, Y: 80}, got.Centroid)
}

func TestSelection_DeleteSelected(t *testing.T) {
	s := newSession(t)
	a := addNode(t, s, node.Task, 0, 0)
	b := addNode(t, s, node.Task, 200, 0)
	c := addNode(t, s, node.Task, 400, 0)
	connect(t, s, a, b)
	connect(t, s, b, c)
	ac := connect(t, s, a, c)

	assert.Equal(t, 0, s.Selection.DeleteSelected())

	s.Selection.SelectNode(b, Replace)
	s.Selection.SelectConnection(ac, Add)
	size := s.History.Size()

	assert.Equal(t, 4, s.Selection.DeleteSelected())
	assert.Equal(t, size+1, s.History.Size())
	assert.Equal(t, "Delete 4 elements", s.History.Entries()[size].Label)
	assert.Empty(t, s.Selection.SelectedNodes())
	assert.Empty(t, s.Selection.SelectedConnections())

	stats := s.Workflow.Stats()
	assert.Equal(t, 2, stats.TotalNodes)
	assert.Equal(t, 0, stats.TotalConnections)

	s.Workflow.Undo()
	assert.Equal(t, 3, s.Workflow.Stats().TotalNodes)
	assert.Equal(t, 3, s.Workflow.Stats().TotalConnections)
}

func TestSelection_HighlightAndHover(t *testing.T) {
	s := newSession(t)
	a := addNode(t, s, node.Task, 0, 0)
	b := addNode(t, s, node.Task, 200, 0)
	ab := connect(t, s, a, b)

	s.Selection.SetHighlight(a)
	s.Selection.SetHover(ab)

	got, ok := s.Selection.Highlighted()
	require.True(t, ok)
	assert.Equal(t, a, got)
	got, ok = s.Selection.Hovered()
	require.True(t, ok)
	assert.Equal(t, ab, got)

	s.Workflow.RemoveNode(a)
	_, ok = s.Selection.Highlighted()
	assert.False(t, ok)
	_, ok = s.Selection.Hovered()
	assert.False(t, ok, "the hovered connection was removed with its node")

	s.Selection.SetHover("")
	_, ok = s.Selection.Hovered()
	assert.False(t, ok)
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Replace, Add, Subtract, Toggle} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("xor")
	assert.EqualError(t, err, `unknown selection mode "xor"`)
}
