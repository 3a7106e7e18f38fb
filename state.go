package main

import "fmt"

func NewState() *State {
	ret := State{}
	ret.paths_ = make(Paths)
	ret.bindings_ = NewBindingEnv(nil)
	return &ret
}

func (this *State) AddEdge(rule *Rule) *Edge {
	edge := NewEdge()
	edge.rule_ = rule
	edge.env_ = NewBindingEnv(this.bindings_)
	edge.id_ = len(this.edges_)
	this.edges_ = append(this.edges_, edge)
	return edge
}

func (this *State) GetNode(path string, slash_bits uint64) *Node {
	node := this.LookupNode(path)
	if node != nil {
		return node
	}
	node = NewNode(path, slash_bits)
	this.paths_[node.path()] = node
	return node
}

func (this *State) LookupNode(path string) *Node {
	if node, ok := this.paths_[path]; ok {
		return node
	}
	return nil
}

func (this *State) SpellcheckNode(path string) *Node {
	kAllowReplacements := true
	kMaxValidEditDistance := 3

	min_distance := kMaxValidEditDistance + 1
	var result *Node = nil
	for first, second := range this.paths_ {
		distance := EditDistance(first, path, kAllowReplacements, kMaxValidEditDistance)
		if distance < min_distance && second != nil {
			min_distance = distance
			result = second
		}
	}
	return result
}

func (this *State) AddIn(edge *Edge, path string, slash_bits uint64) {
	node := this.GetNode(path, slash_bits)
	node.set_generated_by_dep_loader(false)
	edge.inputs_ = append(edge.inputs_, node)
	node.AddOutEdge(edge)
}

func (this *State) AddOut(edge *Edge, path string, slash_bits uint64, err *string) bool {
	node := this.GetNode(path, slash_bits)
	other := node.in_edge()
	if other != nil {
		if other == edge {
			*err = path + " is defined as an output multiple times"
		} else {
			*err = "multiple rules generate " + path
		}
		return false
	}
	edge.outputs_ = append(edge.outputs_, node)
	node.set_in_edge(edge)
	node.set_generated_by_dep_loader(false)
	return true
}

func (this *State) Reset() {
	for _, second := range this.paths_ {
		second.ResetState()
	}
}

func (this *State) Dump() {
	for _, second := range this.paths_ {
		node := second
		fmt.Printf("%s %s [id:%d]\n",
			node.path(),
			func() string {
				if node.status_known() {
					if node.dirty() {
						return "dirty"
					}
					return "clean"
				}
				return "unknown"
			}(),
			node.id())
	}
}
