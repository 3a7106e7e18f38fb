package main

type ExistenceStatus int8

const (
	/// The file hasn't been examined.
	ExistenceStatusUnknown ExistenceStatus = 0
	/// The file doesn't exist.
	ExistenceStatusMissing ExistenceStatus = 1
	/// The path is an actual file. mtime_ will be the file's mtime.
	ExistenceStatusExists ExistenceStatus = 2
)

// / Information about a node in the dependency graph: the file, whether
// / it's dirty, mtime, etc.
type Node struct {
	path_ string

	/// Set bits starting from lowest for backslashes that were normalized to
	/// forward slashes by the caller. Stored so the original spelling can be
	/// reproduced; the deps log itself only ever sees the canonical form.
	slash_bits_ uint64

	/// Possible values of mtime_:
	///   -1: file hasn't been examined
	///   0:  we looked, and file doesn't exist
	///   >0: actual file's mtime
	mtime_ TimeStamp

	exists_ ExistenceStatus

	/// Dirty is true when the underlying file is out-of-date.
	dirty_ bool

	/// Set to true when this node comes from the deps log rather than the
	/// manifest graph. If it does not have a producing edge, tooling should
	/// not complain that it is missing from the manifest.
	generated_by_dep_loader_ bool

	/// The Edge that produces this Node, or nil when there is no
	/// known edge to produce it.
	in_edge_ *Edge

	/// All Edges that use this Node as an input.
	out_edges_ []*Edge

	/// A dense integer id for the node, assigned and used by DepsLog.
	id_ int
}

// / An edge in the dependency graph; links between Nodes.
type Edge struct {
	rule_    *Rule
	inputs_  []*Node
	outputs_ []*Node
	env_     *BindingEnv
	id_      int
}
