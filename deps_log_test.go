package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "deps_log")
}

func TestDepsLogWriteRead(t *testing.T) {
	path := testLogPath(t)

	state1 := NewState()
	log1 := NewDepsLog()
	err := ""
	assert.True(t, log1.OpenForWrite(path, &err))
	assert.Equal(t, "", err)

	{
		var deps []*Node
		deps = append(deps, state1.GetNode("foo.h", 0))
		deps = append(deps, state1.GetNode("bar.h", 0))
		assert.True(t, log1.RecordDeps(state1.GetNode("out.o", 0), 1, deps, &err))

		deps = nil
		deps = append(deps, state1.GetNode("foo.h", 0))
		deps = append(deps, state1.GetNode("bar2.h", 0))
		assert.True(t, log1.RecordDeps(state1.GetNode("out2.o", 0), 2, deps, &err))

		log_deps := log1.GetDeps(state1.GetNode("out.o", 0))
		assert.NotNil(t, log_deps)
		assert.Equal(t, TimeStamp(1), log_deps.mtime)
		assert.Equal(t, 2, log_deps.node_count)
		assert.Equal(t, "foo.h", log_deps.nodes[0].path())
		assert.Equal(t, "bar.h", log_deps.nodes[1].path())
	}

	log1.Close()

	state2 := NewState()
	log2 := NewDepsLog()
	assert.Equal(t, LOAD_SUCCESS, log2.Load(path, state2, &err))

	assert.Equal(t, len(log1.nodes()), len(log2.nodes()))
	for i, node1 := range log1.nodes() {
		node2 := log2.nodes()[i]
		assert.Equal(t, node1.path(), node2.path())
		assert.Equal(t, i, node2.id())
	}

	log_deps := log2.GetDeps(state2.GetNode("out.o", 0))
	assert.NotNil(t, log_deps)
	assert.Equal(t, TimeStamp(1), log_deps.mtime)
	assert.Equal(t, 2, log_deps.node_count)
	assert.Equal(t, "foo.h", log_deps.nodes[0].path())
	assert.Equal(t, "bar.h", log_deps.nodes[1].path())
}

// Records for the same output accumulate in the file but only the last
// one survives a reload.
func TestDepsLogLastWriteWins(t *testing.T) {
	path := testLogPath(t)
	err := ""

	state1 := NewState()
	log1 := NewDepsLog()
	assert.True(t, log1.OpenForWrite(path, &err))
	deps := []*Node{state1.GetNode("a.h", 0), state1.GetNode("b.c", 0)}
	assert.True(t, log1.RecordDeps(state1.GetNode("out", 0), 100, deps, &err))
	deps = []*Node{state1.GetNode("a.h", 0)}
	assert.True(t, log1.RecordDeps(state1.GetNode("out", 0), 200, deps, &err))
	log1.Close()

	state2 := NewState()
	log2 := NewDepsLog()
	assert.Equal(t, LOAD_SUCCESS, log2.Load(path, state2, &err))
	log_deps := log2.GetDeps(state2.GetNode("out", 0))
	assert.NotNil(t, log_deps)
	assert.Equal(t, TimeStamp(200), log_deps.mtime)
	assert.Equal(t, 1, log_deps.node_count)
	assert.Equal(t, "a.h", log_deps.nodes[0].path())

	// Each path was interned exactly once.
	assert.Equal(t, 3, len(log2.nodes()))
}

// Rewriting the same deps must not grow the file; changed deps must.
func TestDepsLogDoubleEntry(t *testing.T) {
	path := testLogPath(t)
	err := ""

	// Write some deps to the file and grab its size.
	file_size := int64(0)
	{
		state := NewState()
		log := NewDepsLog()
		assert.True(t, log.OpenForWrite(path, &err))
		deps := []*Node{state.GetNode("foo.h", 0), state.GetNode("bar.h", 0)}
		assert.True(t, log.RecordDeps(state.GetNode("out.o", 0), 1, deps, &err))
		log.Close()

		st, serr := os.Stat(path)
		assert.NoError(t, serr)
		file_size = st.Size()
		assert.Greater(t, file_size, int64(0))
	}

	// Now reload the file, and read the same deps.
	{
		state := NewState()
		log := NewDepsLog()
		assert.Equal(t, LOAD_SUCCESS, log.Load(path, state, &err))
		assert.True(t, log.OpenForWrite(path, &err))
		deps := []*Node{state.GetNode("foo.h", 0), state.GetNode("bar.h", 0)}
		assert.True(t, log.RecordDeps(state.GetNode("out.o", 0), 1, deps, &err))
		log.Close()

		st, serr := os.Stat(path)
		assert.NoError(t, serr)
		assert.Equal(t, file_size, st.Size())
	}

	// Now reload and write different deps.
	{
		state := NewState()
		log := NewDepsLog()
		assert.Equal(t, LOAD_SUCCESS, log.Load(path, state, &err))
		assert.True(t, log.OpenForWrite(path, &err))
		deps := []*Node{state.GetNode("foo.h", 0)}
		assert.True(t, log.RecordDeps(state.GetNode("out.o", 0), 1, deps, &err))
		log.Close()

		st, serr := os.Stat(path)
		assert.NoError(t, serr)
		assert.Greater(t, st.Size(), file_size)
	}
}

func TestDepsLogPathRecordTooLarge(t *testing.T) {
	path := testLogPath(t)
	err := ""

	state := NewState()
	log := NewDepsLog()
	assert.True(t, log.OpenForWrite(path, &err))

	long_path := strings.Repeat("a", kMaxRecordSize+1)
	assert.False(t, log.RecordDeps(state.GetNode(long_path, 0), 1, nil, &err))
	assert.Equal(t, "path record too large", err)
	log.Close()
}

// addLiveEdge gives |path|'s node an in-edge whose rule carries a "deps"
// binding, which keeps its log entry alive across recompaction.
func addLiveEdge(t *testing.T, state *State, rule *Rule, path string) {
	err := ""
	edge := state.AddEdge(rule)
	assert.True(t, state.AddOut(edge, path, 0, &err))
	assert.Equal(t, "", err)
}

func TestDepsLogRecompact(t *testing.T) {
	path := testLogPath(t)
	err := ""

	// Record deps for two outputs, one of which will lose its in-edge.
	{
		state := NewState()
		log := NewDepsLog()
		assert.True(t, log.OpenForWrite(path, &err))
		deps := []*Node{state.GetNode("foo.h", 0), state.GetNode("bar.h", 0)}
		assert.True(t, log.RecordDeps(state.GetNode("out.o", 0), 1, deps, &err))
		deps = []*Node{state.GetNode("foo.h", 0), state.GetNode("baz.h", 0)}
		assert.True(t, log.RecordDeps(state.GetNode("other_out.o", 0), 1, deps, &err))
		// Overwrite an entry so the file carries a dead record.
		deps = []*Node{state.GetNode("foo.h", 0)}
		assert.True(t, log.RecordDeps(state.GetNode("out.o", 0), 2, deps, &err))
		log.Close()
	}

	file_size := int64(0)
	if st, serr := os.Stat(path); assert.NoError(t, serr) {
		file_size = st.Size()
	}

	state := NewState()
	rule := NewRule("cxx")
	rule.AddBinding("deps", "gcc")
	// Only out.o stays reachable.
	addLiveEdge(t, state, rule, "out.o")

	log := NewDepsLog()
	assert.Equal(t, LOAD_SUCCESS, log.Load(path, state, &err))
	assert.True(t, log.Recompact(path, &err))
	assert.Equal(t, "", err)

	// The dead overwrite and the unreachable output are gone.
	out := state.GetNode("out.o", 0)
	log_deps := log.GetDeps(out)
	assert.NotNil(t, log_deps)
	assert.Equal(t, TimeStamp(2), log_deps.mtime)
	assert.Equal(t, 1, log_deps.node_count)
	assert.Equal(t, "foo.h", log_deps.nodes[0].path())
	assert.Nil(t, log.GetDeps(state.GetNode("other_out.o", 0)))

	// Ids were reassigned densely starting from zero.
	assert.Equal(t, 0, out.id())
	for i, node := range log.nodes() {
		assert.Equal(t, i, node.id())
	}

	if st, serr := os.Stat(path); assert.NoError(t, serr) {
		assert.Less(t, st.Size(), file_size)
	}

	// The rewritten file replays to the same state.
	state2 := NewState()
	log2 := NewDepsLog()
	assert.Equal(t, LOAD_SUCCESS, log2.Load(path, state2, &err))
	log_deps = log2.GetDeps(state2.GetNode("out.o", 0))
	assert.NotNil(t, log_deps)
	assert.Equal(t, TimeStamp(2), log_deps.mtime)
	assert.Equal(t, 1, log_deps.node_count)
	assert.Nil(t, log2.GetDeps(state2.GetNode("other_out.o", 0)))
}

// A log chopped off mid-record loads everything before the damage and
// truncates the file to the last good record.
func TestDepsLogTruncated(t *testing.T) {
	path := testLogPath(t)
	err := ""

	{
		state := NewState()
		log := NewDepsLog()
		assert.True(t, log.OpenForWrite(path, &err))
		deps := []*Node{state.GetNode("foo.h", 0), state.GetNode("bar.h", 0)}
		assert.True(t, log.RecordDeps(state.GetNode("out.o", 0), 1, deps, &err))
		deps = []*Node{state.GetNode("foo.h", 0), state.GetNode("bar2.h", 0)}
		assert.True(t, log.RecordDeps(state.GetNode("out2.o", 0), 2, deps, &err))
		log.Close()
	}

	data, rerr := os.ReadFile(path)
	assert.NoError(t, rerr)

	// Shorten the file a byte at a time; replayed nodes and deps may only
	// ever decrease.
	node_count := 5
	deps_count := 2
	for size := int64(len(data)) - 1; size > 0; size-- {
		copy_path := filepath.Join(t.TempDir(), "deps_log")
		assert.NoError(t, os.WriteFile(copy_path, data[:size], 0o644))

		state := NewState()
		log := NewDepsLog()
		err = ""
		status := log.Load(copy_path, state, &err)
		if status == LOAD_CORRUPTED_TAIL {
			assert.Contains(t, err, "recovering")
			// The file was chopped back to the last complete record.
			st, serr := os.Stat(copy_path)
			assert.NoError(t, serr)
			assert.LessOrEqual(t, st.Size(), size)

			// A second load of the recovered file is clean.
			state2 := NewState()
			log2 := NewDepsLog()
			err = ""
			assert.Equal(t, LOAD_SUCCESS, log2.Load(copy_path, state2, &err))
		} else {
			assert.Equal(t, LOAD_SUCCESS, status)
		}

		assert.LessOrEqual(t, len(log.nodes()), node_count)
		node_count = len(log.nodes())
		live := 0
		for _, d := range log.deps() {
			if d != nil {
				live++
			}
		}
		assert.LessOrEqual(t, live, deps_count)
		deps_count = live
	}
}

// Writing after recovering from a truncated log must not leave the old
// tail interleaved with new records.
func TestDepsLogTruncatedRecovery(t *testing.T) {
	path := testLogPath(t)
	err := ""
	rule := NewRule("cxx")
	rule.AddBinding("deps", "gcc")

	{
		state := NewState()
		log := NewDepsLog()
		assert.True(t, log.OpenForWrite(path, &err))
		deps := []*Node{state.GetNode("foo.h", 0), state.GetNode("bar.h", 0)}
		assert.True(t, log.RecordDeps(state.GetNode("out.o", 0), 1, deps, &err))
		deps = []*Node{state.GetNode("foo.h", 0), state.GetNode("bar2.h", 0)}
		assert.True(t, log.RecordDeps(state.GetNode("out2.o", 0), 2, deps, &err))
		log.Close()
	}

	// Cut the last record in half.
	{
		st, serr := os.Stat(path)
		assert.NoError(t, serr)
		f, oerr := os.OpenFile(path, os.O_WRONLY, 0)
		assert.NoError(t, oerr)
		assert.NoError(t, f.Truncate(st.Size()-2))
		f.Close()
	}

	// Load the file, write out2.o's new deps, and make sure the log stays
	// coherent across another reload.
	{
		state := NewState()
		addLiveEdge(t, state, rule, "out.o")
		addLiveEdge(t, state, rule, "out2.o")

		log := NewDepsLog()
		assert.Equal(t, LOAD_CORRUPTED_TAIL, log.Load(path, state, &err))
		assert.Contains(t, err, "recovering")
		assert.True(t, log.needs_recompaction())
		assert.Nil(t, log.GetDeps(state.GetNode("out2.o", 0)))

		// The record counts reflect what replayed before the damage.
		assert.Equal(t, 1, log.total_dep_record_count_)
		assert.Equal(t, 1, log.unique_dep_record_count_)

		err = ""
		assert.True(t, log.OpenForWrite(path, &err))
		deps := []*Node{state.GetNode("foo.h", 0), state.GetNode("bar2.h", 0)}
		assert.True(t, log.RecordDeps(state.GetNode("out2.o", 0), 3, deps, &err))
		log.Close()
	}

	{
		state := NewState()
		log := NewDepsLog()
		err = ""
		assert.Equal(t, LOAD_SUCCESS, log.Load(path, state, &err))

		log_deps := log.GetDeps(state.GetNode("out.o", 0))
		assert.NotNil(t, log_deps)
		assert.Equal(t, TimeStamp(1), log_deps.mtime)

		log_deps = log.GetDeps(state.GetNode("out2.o", 0))
		assert.NotNil(t, log_deps)
		assert.Equal(t, TimeStamp(3), log_deps.mtime)
		assert.Equal(t, 2, log_deps.node_count)
		assert.Equal(t, "bar2.h", log_deps.nodes[1].path())
	}
}

// A path record whose stored checksum disagrees with its position means
// another writer raced us; everything from there on is discarded.
func TestDepsLogChecksumMismatch(t *testing.T) {
	path := testLogPath(t)
	err := ""

	{
		state := NewState()
		log := NewDepsLog()
		assert.True(t, log.OpenForWrite(path, &err))
		deps := []*Node{state.GetNode("foo.h", 0)}
		assert.True(t, log.RecordDeps(state.GetNode("out.o", 0), 1, deps, &err))
		log.Close()
	}

	data, rerr := os.ReadFile(path)
	assert.NoError(t, rerr)
	// Each path record here is 16 bytes: 4 header, 8 name plus padding,
	// 4 checksum. Corrupt the checksum of the second path record.
	data[16+12] ^= 0xff
	assert.NoError(t, os.WriteFile(path, data, 0o644))

	state := NewState()
	log := NewDepsLog()
	assert.Equal(t, LOAD_CORRUPTED_TAIL, log.Load(path, state, &err))
	assert.Equal(t, 1, len(log.nodes()))
	assert.Equal(t, "out.o", log.nodes()[0].path())
}

func TestDepsLogReverseDeps(t *testing.T) {
	path := testLogPath(t)
	err := ""

	state := NewState()
	log := NewDepsLog()
	assert.True(t, log.OpenForWrite(path, &err))
	deps := []*Node{state.GetNode("foo.h", 0), state.GetNode("bar.h", 0)}
	assert.True(t, log.RecordDeps(state.GetNode("out.o", 0), 1, deps, &err))
	deps = []*Node{state.GetNode("bar.h", 0)}
	assert.True(t, log.RecordDeps(state.GetNode("out2.o", 0), 1, deps, &err))
	log.Close()

	rev := log.GetFirstReverseDepsNode(state.GetNode("foo.h", 0))
	assert.NotNil(t, rev)
	assert.Equal(t, "out.o", rev.path())

	rev = log.GetFirstReverseDepsNode(state.GetNode("bar.h", 0))
	assert.NotNil(t, rev)
	assert.Equal(t, "out.o", rev.path())

	assert.Nil(t, log.GetFirstReverseDepsNode(state.GetNode("out.o", 0)))
}

func TestDepsEntryLiveness(t *testing.T) {
	state := NewState()
	err := ""

	// No in-edge at all.
	orphan := state.GetNode("orphan.o", 0)
	assert.False(t, IsDepsEntryLiveFor(orphan))

	// In-edge without a "deps" binding.
	plain := NewRule("plain")
	edge := state.AddEdge(plain)
	assert.True(t, state.AddOut(edge, "plain.o", 0, &err))
	assert.False(t, IsDepsEntryLiveFor(state.GetNode("plain.o", 0)))

	// In-edge with one.
	cxx := NewRule("cxx")
	cxx.AddBinding("deps", "gcc")
	edge = state.AddEdge(cxx)
	assert.True(t, state.AddOut(edge, "live.o", 0, &err))
	assert.True(t, IsDepsEntryLiveFor(state.GetNode("live.o", 0)))
}

func TestDepsLogCompactionPredicate(t *testing.T) {
	path := testLogPath(t)
	err := ""

	{
		state := NewState()
		log := NewDepsLog()
		assert.True(t, log.OpenForWrite(path, &err))
		deps := []*Node{state.GetNode("foo.h", 0)}
		assert.True(t, log.RecordDeps(state.GetNode("out.o", 0), 1, deps, &err))
		deps = []*Node{state.GetNode("bar.h", 0)}
		assert.True(t, log.RecordDeps(state.GetNode("out.o", 0), 2, deps, &err))
		log.Close()
	}

	// The default heuristic needs over a thousand records to fire.
	{
		state := NewState()
		log := NewDepsLog()
		assert.Equal(t, LOAD_SUCCESS, log.Load(path, state, &err))
		assert.False(t, log.needs_recompaction())
	}

	// A caller-supplied predicate sees the real counts.
	{
		state := NewState()
		log := NewDepsLog()
		saw_unique, saw_total := -1, -1
		log.SetCompactionPredicate(func(unique_record_count, total_record_count int) bool {
			saw_unique = unique_record_count
			saw_total = total_record_count
			return true
		})
		assert.Equal(t, LOAD_SUCCESS, log.Load(path, state, &err))
		assert.Equal(t, 1, saw_unique)
		assert.Equal(t, 2, saw_total)
		assert.True(t, log.needs_recompaction())
	}
}

func TestDepsLogMissingFile(t *testing.T) {
	err := ""
	state := NewState()
	log := NewDepsLog()
	assert.Equal(t, LOAD_NOT_FOUND, log.Load(filepath.Join(t.TempDir(), "absent"), state, &err))
	assert.Equal(t, "", err)
}
