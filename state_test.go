package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateGetNodeInterns(t *testing.T) {
	state := NewState()
	node := state.GetNode("foo.h", 0)
	assert.Equal(t, "foo.h", node.path())
	assert.Equal(t, -1, node.id())
	assert.Same(t, node, state.GetNode("foo.h", 0))
	assert.Same(t, node, state.LookupNode("foo.h"))
	assert.Nil(t, state.LookupNode("bar.h"))
}

func TestStateDuplicateOutput(t *testing.T) {
	state := NewState()
	err := ""
	rule := NewRule("cxx")
	edge := state.AddEdge(rule)
	assert.True(t, state.AddOut(edge, "out.o", 0, &err))

	edge2 := state.AddEdge(rule)
	assert.False(t, state.AddOut(edge2, "out.o", 0, &err))
	assert.NotEqual(t, "", err)
	assert.Same(t, edge, state.GetNode("out.o", 0).in_edge())
}

func TestStateSpellcheck(t *testing.T) {
	state := NewState()
	state.GetNode("subdir/foo.o", 0)
	suggestion := state.SpellcheckNode("subdir/foo.0")
	assert.NotNil(t, suggestion)
	assert.Equal(t, "subdir/foo.o", suggestion.path())
}
