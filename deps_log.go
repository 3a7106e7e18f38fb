package main

import (
	"encoding/binary"
	"errors"
	"os"
)

func NewDepsLog() *DepsLog {
	ret := DepsLog{}
	ret.needs_recompaction_ = false
	ret.file_ = nil
	return &ret
}

func (this *DepsLog) ReleaseDepsLog() {
	this.Close()
}

// Writing (build-time) interface.

func (this *DepsLog) OpenForWrite(path string, err *string) bool {
	if this.needs_recompaction_ {
		if !this.Recompact(path, err) {
			return false
		}
	}

	if this.file_ != nil {
		panic("DepsLog::OpenForWrite: file_ is already open")
	}
	this.file_path_ = path // Don't actually open the file right now, but will do
	// so on the first write.
	return true
}

func (this *DepsLog) RecordDeps(node *Node, mtime TimeStamp, nodes []*Node, err *string) bool {
	return this.RecordDeps2(node, mtime, len(nodes), nodes, err)
}

func (this *DepsLog) RecordDeps2(node *Node, mtime TimeStamp, node_count int, nodes []*Node, err *string) bool {
	// Track whether there's any new data to be recorded.
	made_change := false

	// Assign ids to all nodes that are missing one.
	if node.id() < 0 {
		if !this.RecordId(node, err) {
			return false
		}
		made_change = true
	}
	for i := 0; i < node_count; i++ {
		if nodes[i].id() < 0 {
			if !this.RecordId(nodes[i], err) {
				return false
			}
			made_change = true
		}
	}

	// See if the new data is different than the existing data, if any.
	if !made_change {
		deps := this.GetDeps(node)
		if deps == nil || deps.mtime != mtime || deps.node_count != node_count {
			made_change = true
		} else {
			for i := 0; i < node_count; i++ {
				if deps.nodes[i] != nodes[i] {
					made_change = true
					break
				}
			}
		}
	}

	// Don't write anything if there's no new info.
	if !made_change {
		return true
	}

	// Update on-disk representation.
	size := uint32(4 * (1 + 2 + node_count))
	if size > kMaxRecordSize {
		*err = "too many dependencies"
		return false
	}
	if !this.OpenForWriteIfNeeded(err) {
		return false
	}
	buf := make([]byte, 0, 4+size)
	buf = binary.LittleEndian.AppendUint32(buf, size|0x80000000)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(node.id()))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(uint64(mtime)&0xffffffff))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(uint64(mtime)>>32))
	for i := 0; i < node_count; i++ {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(nodes[i].id()))
	}
	// A record is built in full and handed to the OS in a single write, so a
	// crash loses at most the record in flight, never an earlier one.
	if _, werr := this.file_.Write(buf); werr != nil {
		*err = werr.Error()
		return false
	}

	// Update in-memory representation.
	deps := NewDeps(int64(mtime), node_count)
	for i := 0; i < node_count; i++ {
		deps.nodes[i] = nodes[i]
	}
	this.UpdateDeps(node.id(), deps)

	return true
}

func (this *DepsLog) Close() {
	errDummy := ""
	this.OpenForWriteIfNeeded(&errDummy) // create the file even if nothing has been recorded
	if this.file_ != nil {
		this.file_.Close()
	}
	this.file_ = nil
}

// Reading (startup-time) interface.

func (this *DepsLog) Load(path string, state *State, err *string) LoadStatus {
	m := METRIC_RECORD("deps log load")
	defer m.ReleaseScopedMetric()

	this.file_path_ = path
	data, rerr := os.ReadFile(path)
	if rerr != nil {
		if errors.Is(rerr, os.ErrNotExist) {
			return LOAD_NOT_FOUND
		}
		*err = rerr.Error()
		return LOAD_ERROR
	}

	read_failed := false
	offset := 0
	unique_dep_record_count := 0
	total_dep_record_count := 0
	for offset < len(data) {
		if offset+4 > len(data) {
			read_failed = true
			break
		}
		header := binary.LittleEndian.Uint32(data[offset:])
		is_deps := header&0x80000000 != 0
		size := int(header & 0x7FFFFFFF)
		if size > kMaxRecordSize || offset+4+size > len(data) {
			read_failed = true
			break
		}
		record := data[offset+4 : offset+4+size]

		if is_deps {
			if size%4 != 0 || size < 12 {
				read_failed = true
				break
			}
			out_id := int(int32(binary.LittleEndian.Uint32(record)))
			mtime := TimeStamp(uint64(binary.LittleEndian.Uint32(record[8:]))<<32 |
				uint64(binary.LittleEndian.Uint32(record[4:])))
			if out_id < 0 || out_id >= len(this.nodes_) {
				read_failed = true
				break
			}
			deps_count := size/4 - 3
			deps := NewDeps(int64(mtime), deps_count)
			for i := 0; i < deps_count; i++ {
				node_id := int(int32(binary.LittleEndian.Uint32(record[12+4*i:])))
				if node_id < 0 || node_id >= len(this.nodes_) {
					read_failed = true
					break
				}
				deps.nodes[i] = this.nodes_[node_id]
			}
			if read_failed {
				break
			}
			total_dep_record_count++
			if !this.UpdateDeps(out_id, deps) {
				unique_dep_record_count++
			}
		} else {
			path_size := size - 4
			if path_size <= 0 {
				read_failed = true
				break
			}
			// There can be up to 3 bytes of padding.
			for i := 0; i < 3 && path_size > 0 && record[path_size-1] == 0; i++ {
				path_size--
			}
			subpath := string(record[:path_size])
			// It is not necessary to pass in a correct slash_bits here. It will
			// either be a Node that's in the manifest (in which case it will
			// already have a correct slash_bits that GetNode will look up), or it
			// is an implicit dependency from a depfile which does not affect the
			// build command (and so need not have its slashes maintained).
			node := state.GetNode(subpath, 0)

			// Check that the expected index matches the actual index. This can
			// only happen if two processes write to the same deps log
			// concurrently. (This uses unary complement to make the checksum
			// look less like a dependency record entry.)
			checksum := binary.LittleEndian.Uint32(record[size-4:])
			expected_id := ^checksum
			id := len(this.nodes_)
			if uint32(id) != expected_id || node.id() >= 0 {
				read_failed = true
				break
			}
			node.set_id(id)
			this.nodes_ = append(this.nodes_, node)
		}
		offset += 4 + size
	}

	this.total_dep_record_count_ = total_dep_record_count
	this.unique_dep_record_count_ = unique_dep_record_count

	if read_failed {
		// An error occurred while loading; try to recover by truncating the
		// file to the last fully-read record.  Everything before the bad
		// record is still trusted.
		if !this.Truncate(path, int64(offset), err) {
			return LOAD_ERROR
		}
		*err = "premature end of file; recovering"
		this.needs_recompaction_ = true
		return LOAD_CORRUPTED_TAIL
	}

	// Rebuild the log if there are too many dead records.
	predicate := this.compaction_predicate_
	if predicate == nil {
		predicate = DefaultCompactionPredicate
	}
	if predicate(unique_dep_record_count, total_dep_record_count) {
		this.needs_recompaction_ = true
	}

	return LOAD_SUCCESS
}

// / The default compaction trigger, matching the historical heuristic:
// / only bother once the log has a nontrivial number of records and more
// / than two thirds of them are dead.
func DefaultCompactionPredicate(unique_record_count, total_record_count int) bool {
	kMinCompactionEntryCount := 1000
	kCompactionRatio := 3
	return total_record_count > kMinCompactionEntryCount &&
		total_record_count > unique_record_count*kCompactionRatio
}

// / Replace the compaction trigger heuristic consulted at Load time.
// / Passing nil restores the default.
func (this *DepsLog) SetCompactionPredicate(predicate CompactionPredicate) {
	this.compaction_predicate_ = predicate
}

func (this *DepsLog) needs_recompaction() bool {
	return this.needs_recompaction_
}

func (this *DepsLog) GetDeps(node *Node) *Deps {
	// Abort if the node has no id (never referenced in the deps) or if
	// there's no deps recorded for the node.
	if node.id() < 0 || node.id() >= len(this.deps_) {
		return nil
	}
	return this.deps_[node.id()]
}

func (this *DepsLog) GetFirstReverseDepsNode(node *Node) *Node {
	for id := 0; id < len(this.deps_); id++ {
		deps := this.deps_[id]
		if deps == nil {
			continue
		}
		for i := 0; i < deps.node_count; i++ {
			if deps.nodes[i] == node {
				return this.nodes_[id]
			}
		}
	}
	return nil
}

// / Rewrite the known log entries, throwing away old data.
func (this *DepsLog) Recompact(path string, err *string) bool {
	m := METRIC_RECORD("deps log recompact")
	defer m.ReleaseScopedMetric()

	this.Close()
	temp_path := path + ".recompact"

	// OpenForWrite() opens for append.  Make sure it's not appending to a
	// left-over file from a previous recompaction attempt that crashed
	// somewhere in the middle.
	if rmErr := os.Remove(temp_path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		*err = rmErr.Error()
		return false
	}

	new_log := NewDepsLog()
	if !new_log.OpenForWrite(temp_path, err) {
		return false
	}

	// Clear all known ids so that new ones can be reassigned.  The new indices
	// will refer to the ordering in new_log, not in the current log.
	for _, node := range this.nodes_ {
		node.set_id(-1)
	}

	// Write out all deps again.
	for old_id := 0; old_id < len(this.deps_); old_id++ {
		deps := this.deps_[old_id]
		if deps == nil { // If nodes_[old_id] is a leaf, it has no deps.
			continue
		}

		if !IsDepsEntryLiveFor(this.nodes_[old_id]) {
			continue
		}

		if !new_log.RecordDeps(this.nodes_[old_id], deps.mtime, deps.nodes, err) {
			new_log.Close()
			os.Remove(temp_path)
			return false
		}
	}

	new_log.Close()

	// All nodes now have ids that refer to the new log, so steal its data.
	this.deps_ = new_log.deps_
	this.nodes_ = new_log.nodes_
	this.needs_recompaction_ = false

	if rnErr := os.Rename(temp_path, path); rnErr != nil {
		*err = rnErr.Error()
		os.Remove(temp_path)
		return false
	}

	return true
}

// / Returns if the deps entry for a node is still reachable from the manifest.
// /
// / The deps log can contain deps entries for files that were built in the
// / past but are no longer part of the manifest.  This function returns if
// / this is the case for a given node.  This function is slow, don't call
// / it from code that runs on every build.
func IsDepsEntryLiveFor(node *Node) bool {
	// Skip entries that don't have in-edges or whose edges don't have a
	// "deps" attribute. They were in the deps log from previous builds, but
	// the files they were for were removed from the build and their deps
	// entries are no longer needed.
	// (Without the check for "deps", a chain of two or more nodes that each
	// had deps wouldn't be collected in a single recompaction.)
	return node.in_edge() != nil && node.in_edge().GetBinding("deps") != ""
}

// / Used for tests.
func (this *DepsLog) nodes() []*Node { return this.nodes_ }
func (this *DepsLog) deps() []*Deps  { return this.deps_ }

// Updates the in-memory representation.  Takes ownership of |deps|.
// Returns true if a prior deps record was deleted.
func (this *DepsLog) UpdateDeps(out_id int, deps *Deps) bool {
	if out_id >= len(this.deps_) {
		this.deps_ = append(this.deps_, make([]*Deps, out_id+1-len(this.deps_))...)
	}
	delete_old := this.deps_[out_id] != nil
	if delete_old {
		this.deps_[out_id].ReleaseDeps()
	}
	this.deps_[out_id] = deps
	return delete_old
}

// Write a path name record, assigning it an id.
func (this *DepsLog) RecordId(node *Node, err *string) bool {
	path_size := len(node.path())
	if path_size == 0 {
		*err = "attempted to record empty path"
		return false
	}
	padding := (4 - path_size%4) % 4 // Pad path to 4 byte boundary.

	size := uint32(path_size + padding + 4)
	if size > kMaxRecordSize {
		*err = "path record too large"
		return false
	}
	if !this.OpenForWriteIfNeeded(err) {
		return false
	}

	id := len(this.nodes_)
	buf := make([]byte, 0, 4+size)
	buf = binary.LittleEndian.AppendUint32(buf, size)
	buf = append(buf, node.path()...)
	for i := 0; i < padding; i++ {
		buf = append(buf, 0)
	}
	buf = binary.LittleEndian.AppendUint32(buf, ^uint32(id))
	if _, werr := this.file_.Write(buf); werr != nil {
		*err = werr.Error()
		return false
	}

	node.set_id(id)
	this.nodes_ = append(this.nodes_, node)
	return true
}

// / Should be called before using file_.  Opens the log lazily so that a
// / no-op run never touches the file.
func (this *DepsLog) OpenForWriteIfNeeded(err *string) bool {
	if this.file_ != nil || this.file_path_ == "" {
		return true
	}
	file, oerr := os.OpenFile(this.file_path_, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if oerr != nil {
		*err = oerr.Error()
		return false
	}
	this.file_ = file
	return true
}

// / Chop the log off at offset, dropping the unreadable tail.
func (this *DepsLog) Truncate(path string, offset int64, err1 *string) bool {
	file, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		*err1 = err.Error()
		return false
	}
	defer file.Close()

	if err = file.Truncate(offset); err != nil {
		*err1 = err.Error()
		return false
	}
	return true
}
