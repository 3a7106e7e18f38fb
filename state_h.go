package main

type Paths map[string]*Node

// / Global state (file status) for a single run. This is the registry the
// / deps log interns paths against: node identity is established here, and
// / the log stores dense ids keyed by that identity.
type State struct {
	paths_ Paths

	/// All the edges of the graph.
	edges_ []*Edge

	bindings_ *BindingEnv
}
