package main

import "os"

// / As build commands run they can output extra dependency information
// / (e.g. header dependencies for C source) dynamically.  DepsLog collects
// / that information at build time and uses it for subsequent builds.
// /
// / The on-disk format is based on two primary design constraints:
// / - it must be written to as a stream (during the build, which may be
// /   interrupted);
// / - it can be read all at once on startup.  (Alternative designs, where
// /   it contains indexing information, were considered and discarded as
// /   too complicated to implement; if the file is small then reading it
// /   fully on startup is acceptable.)
// /
// / The file is a sequence of records.  Each record is either a path string
// / or a dependency list.  Numbering the path strings in file order gives
// / them dense integer ids.  A dependency list maps an output id to a list
// / of input ids.
// /
// / Concretely, a record is:
// /    four bytes record length, high bit indicates record type
// /      (but max record sizes are capped at 512kB)
// /    path records contain the string name of the path, followed by up to 3
// /      padding bytes to align on 4 byte boundaries, followed by the
// /      one's complement of the expected index of the record (to detect
// /      concurrent writes of multiple processes to the log).
// /    dependency records are an array of 4-byte integers
// /      [output path id,
// /       output path mtime (lower 4 bytes), output path mtime (upper 4 bytes),
// /       input path id, input path id...]
// /      (The mtime is compared against the on-disk output path mtime
// /      to verify the stored data is up-to-date.)
// / If two records reference the same output the latter one in the file
// / wins, allowing updates to just be appended to the file.  A separate
// / repacking step can run occasionally to remove dead records.
type DepsLog struct {
	needs_recompaction_ bool
	file_               *os.File
	file_path_          string

	/// Decides, given the unique and total dependency record counts seen
	/// during Load, whether the log should be rewritten.  nil means the
	/// default dead-record-ratio heuristic.
	compaction_predicate_ CompactionPredicate

	/// Record counts observed by the last Load, for diagnostics.
	total_dep_record_count_  int
	unique_dep_record_count_ int

	/// Maps id -> Node.
	nodes_ []*Node
	/// Maps id -> deps of that id.
	deps_ []*Deps
}

type CompactionPredicate func(unique_record_count, total_record_count int) bool

const kMaxRecordSize = (1 << 19) - 1

type Deps struct {
	mtime      TimeStamp
	node_count int
	nodes      []*Node
}

func NewDeps(mtime int64, node_count int) *Deps {
	ret := Deps{}
	ret.mtime = TimeStamp(mtime)
	ret.node_count = node_count
	ret.nodes = make([]*Node, node_count)
	return &ret
}

func (this *Deps) ReleaseDeps() {
	this.nodes = nil
}
