package main

func NewNode(path string, slash_bits uint64) *Node {
	ret := Node{}
	ret.path_ = path
	ret.slash_bits_ = slash_bits
	ret.mtime_ = -1
	ret.id_ = -1
	ret.generated_by_dep_loader_ = true
	return &ret
}

// / Return false on error.
func (this *Node) Stat(disk_interface DiskInterface, err *string) bool {
	mtime, notExist, err1 := disk_interface.StatNode(this)
	if err1 != nil {
		*err = err1.Error()
		return false
	}
	this.mtime_ = mtime
	if !notExist {
		this.exists_ = ExistenceStatusExists
	} else {
		this.exists_ = ExistenceStatusMissing
	}
	return true
}

// / Return false on error.
func (this *Node) StatIfNecessary(disk_interface DiskInterface, err *string) bool {
	if this.status_known() {
		return true
	}
	return this.Stat(disk_interface, err)
}

// / Mark as not-yet-stat()ed and not dirty.
func (this *Node) ResetState() {
	this.mtime_ = -1
	this.exists_ = ExistenceStatusUnknown
	this.dirty_ = false
}

// / Mark the Node as already-stat()ed and missing.
func (this *Node) MarkMissing() {
	if this.mtime_ == -1 {
		this.mtime_ = 0
	}
	this.exists_ = ExistenceStatusMissing
}

func (this *Node) exists() bool {
	return this.exists_ == ExistenceStatusExists
}

func (this *Node) status_known() bool {
	return this.exists_ != ExistenceStatusUnknown
}

func (this *Node) path() string { return this.path_ }

func (this *Node) slash_bits() uint64 { return this.slash_bits_ }

func (this *Node) mtime() TimeStamp          { return this.mtime_ }
func (this *Node) set_mtime(mtime TimeStamp) { this.mtime_ = mtime }

func (this *Node) dirty() bool          { return this.dirty_ }
func (this *Node) set_dirty(dirty bool) { this.dirty_ = dirty }
func (this *Node) MarkDirty()           { this.dirty_ = true }

func (this *Node) in_edge() *Edge         { return this.in_edge_ }
func (this *Node) set_in_edge(edge *Edge) { this.in_edge_ = edge }

// / Indicates whether this node was generated from the deps log instead of
// / being declared by a manifest edge.
func (this *Node) generated_by_dep_loader() bool { return this.generated_by_dep_loader_ }

func (this *Node) set_generated_by_dep_loader(value bool) {
	this.generated_by_dep_loader_ = value
}

func (this *Node) id() int       { return this.id_ }
func (this *Node) set_id(id int) { this.id_ = id }

func (this *Node) out_edges() []*Edge { return this.out_edges_ }

func (this *Node) AddOutEdge(edge *Edge) {
	this.out_edges_ = append(this.out_edges_, edge)
}

func NewEdge() *Edge {
	ret := Edge{}
	return &ret
}

func (this *Edge) rule() *Rule { return this.rule_ }

// / Looks up the variable in the edge scope first, then in the rule; an
// / unbound variable evaluates to "".
func (this *Edge) GetBinding(key string) string {
	if this.env_ != nil {
		if val := this.env_.LookupVariable(key); val != "" {
			return val
		}
	}
	if this.rule_ != nil {
		return this.rule_.GetBinding(key)
	}
	return ""
}
