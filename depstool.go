package main

import (
	"fmt"
	"os"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/ahrtr/gocontainer/queue/priorityqueue"
	"github.com/ahrtr/gocontainer/set"
	"github.com/edwingeng/deque"
	"github.com/fatih/color"
)

// / The version number of the current depslog release.
const kDepsLogVersion = "1.0.0"

// / Default on-disk name of the dependency log.
const kDefaultLogFile = ".deps_log"

// / Command-line options.
type Options struct {
	/// Dependency log to operate on.
	LogFile string

	/// Tool to run.
	Tool *Tool

	/// Remote sharing service base URL (-r) and instance name (-R).
	RbeService  string
	RbeInstance string
}

type When int8

const (
	/// Run after parsing the command-line flags (as early as possible).
	RUN_AFTER_FLAGS When = 0

	/// Run after loading the deps log.
	RUN_AFTER_LOGS When = 1
)

// / The type of functions that are the entry points to tools (subcommands).
type ToolFunc func(*Options, *[]string) int

// / Subtools, accessible via "-t foo".
type Tool struct {
	/// Short name of the tool.
	Name string

	/// Description (shown in "-t list").
	Desc string

	/// When to run the tool.
	When When

	/// Implementation of the tool.
	Func1 ToolFunc
}

type DepsLogMain struct {
	/// Parsed command line, shared with main().
	Options_ *Options

	/// Loaded state (path registry and, when tooling attaches one, graph).
	State_ *State

	/// Functions for accessing the disk.
	DiskInterface *RealDiskInterface

	DepsLog_ DepsLog

	StartTimeMillis int64
}

func NewDepsLogMain(options *Options) *DepsLogMain {
	ret := DepsLogMain{}
	ret.Options_ = options
	ret.State_ = NewState()
	ret.DiskInterface = NewRealDiskInterface()
	ret.StartTimeMillis = GetTimeMillis()
	return &ret
}

// / Open the deps log, printing an error on failure.
func (this *DepsLogMain) OpenDepsLog() bool {
	err := ""
	status := this.DepsLog_.Load(this.Options_.LogFile, this.State_, &err)
	switch status {
	case LOAD_ERROR:
		Error("loading deps log %s: %s", this.Options_.LogFile, err)
		return false
	case LOAD_CORRUPTED_TAIL:
		Warning("%s: %s", this.Options_.LogFile, err)
	case LOAD_NOT_FOUND:
		// A fresh build has no log yet; all tools cope with an empty one.
	}
	return true
}

// / Dump the output requested by '-d stats'.
func (this *DepsLogMain) DumpMetrics() {
	g_metrics.Report()
	fmt.Printf("\n")
	count := len(this.State_.paths_)
	fmt.Printf("path->node hash load 1.00 (%d entries)\n", count)
}

func DebugEnable(name string) bool {
	if name == "list" {
		fmt.Printf("debugging modes:\n  stats     print operation counts/timing info\n")
		return false
	} else if name == "stats" {
		g_metrics = NewMetrics()
		return true
	} else {
		suggestion := SpellcheckStringV(name, []string{"stats"})
		if suggestion != "" {
			Error("unknown debug setting '%s', did you mean '%s'?", name, suggestion)
		} else {
			Error("unknown debug setting '%s'", name)
		}
		return false
	}
}

// / Collect the nodes named on the command line, failing on unknown paths.
func (this *DepsLogMain) CollectTargetsFromArgs(args *[]string, targets *[]*Node, err *string) bool {
	for _, path := range *args {
		node := this.State_.LookupNode(path)
		if node == nil {
			*err = fmt.Sprintf("unknown target '%s'", path)
			if suggestion := this.State_.SpellcheckNode(path); suggestion != nil {
				*err += fmt.Sprintf(", did you mean '%s'?", suggestion.path())
			}
			return false
		}
		*targets = append(*targets, node)
	}
	return true
}

func (this *DepsLogMain) ToolDeps(options *Options, args *[]string) int {
	nodes := []*Node{}
	if len(*args) == 0 {
		for _, ni := range this.DepsLog_.nodes() {
			if this.DepsLog_.GetDeps(ni) != nil {
				nodes = append(nodes, ni)
			}
		}
	} else {
		err := ""
		if !this.CollectTargetsFromArgs(args, &nodes, &err) {
			Error("%s", err)
			return 1
		}
	}

	for _, it := range nodes {
		deps := this.DepsLog_.GetDeps(it)
		if deps == nil {
			fmt.Printf("%s: deps not found\n", it.path())
			continue
		}

		mtime, notExist, err := this.DiskInterface.StatNode(it)
		if err != nil {
			Error("%s", err.Error()) // Log and ignore Stat() errors.
		}
		if notExist || mtime != deps.mtime {
			color.Red("%s: #deps %d, deps mtime %d (STALE)", it.path(), deps.node_count, deps.mtime)
		} else {
			color.Green("%s: #deps %d, deps mtime %d (VALID)", it.path(), deps.node_count, deps.mtime)
		}
		for i := 0; i < deps.node_count; i++ {
			fmt.Printf("    %s\n", deps.nodes[i].path())
		}
		fmt.Printf("\n")
	}

	return 0
}

// / Walk the deps table upwards from an input: which recorded outputs,
// / directly or transitively, depend on it.
func (this *DepsLogMain) ToolQuery(options *Options, args *[]string) int {
	if len(*args) == 0 {
		Error("expected a target to query")
		return 1
	}

	for _, path := range *args {
		node := this.State_.LookupNode(path)
		if node == nil {
			Error("unknown path '%s'", path)
			return 1
		}

		first := this.DepsLog_.GetFirstReverseDepsNode(node)
		if first == nil {
			fmt.Printf("%s: no recorded dependents\n", path)
			continue
		}

		fmt.Printf("%s:\n", path)
		visited := set.New()
		frontier := deque.NewDeque()
		frontier.PushBack(node)
		visited.Add(node)
		for !frontier.Empty() {
			cur := frontier.Front().(*Node)
			frontier.PopFront()
			// O(live entries) per step; this tool is diagnostics only.
			for id := 0; id < len(this.DepsLog_.deps()); id++ {
				deps := this.DepsLog_.deps()[id]
				if deps == nil {
					continue
				}
				for i := 0; i < deps.node_count; i++ {
					if deps.nodes[i] != cur {
						continue
					}
					out := this.DepsLog_.nodes()[id]
					if !visited.Contains(out) {
						visited.Add(out)
						frontier.PushBack(out)
						fmt.Printf("    %s\n", out.path())
					}
					break
				}
			}
		}
	}
	return 0
}

type staleEntry struct {
	node  *Node
	mtime TimeStamp
}

type staleEntryCmp struct{}

func (this *staleEntryCmp) Compare(v1, v2 interface{}) (int, error) {
	e1 := v1.(*staleEntry)
	e2 := v2.(*staleEntry)
	if e1.mtime < e2.mtime {
		return -1, nil
	}
	if e1.mtime > e2.mtime {
		return 1, nil
	}
	return 0, nil
}

func (this *DepsLogMain) ToolStats(options *Options, args *[]string) int {
	live := 0
	dep_edges := 0
	oldest := priorityqueue.New().WithComparator(&staleEntryCmp{})
	for id := 0; id < len(this.DepsLog_.deps()); id++ {
		deps := this.DepsLog_.deps()[id]
		if deps == nil {
			continue
		}
		live++
		dep_edges += deps.node_count
		oldest.Add(&staleEntry{node: this.DepsLog_.nodes()[id], mtime: deps.mtime})
	}

	fmt.Printf("paths:   %d\n", len(this.DepsLog_.nodes()))
	fmt.Printf("entries: %d\n", live)
	fmt.Printf("deps:    %d\n", dep_edges)
	total := this.DepsLog_.total_dep_record_count_
	if total > 0 {
		dead := total - this.DepsLog_.unique_dep_record_count_
		fmt.Printf("records: %d total, %d dead (%.0f%%)\n",
			total, dead, float64(dead)*100.0/float64(total))
	}
	if info, err := os.Stat(options.LogFile); err == nil {
		fmt.Printf("size:    %d bytes\n", info.Size())
	}
	fmt.Printf("needs recompaction: %v\n", this.DepsLog_.needs_recompaction())

	kOldestToShow := 5
	if !oldest.IsEmpty() {
		fmt.Printf("oldest entries:\n")
	}
	for i := 0; i < kOldestToShow && !oldest.IsEmpty(); i++ {
		entry := oldest.Poll().(*staleEntry)
		fmt.Printf("    %s (mtime %d)\n", entry.node.path(), entry.mtime)
	}
	return 0
}

func (this *DepsLogMain) ToolCheck(options *Options, args *[]string) int {
	nodes := []*Node{}
	if len(*args) == 0 {
		for _, ni := range this.DepsLog_.nodes() {
			if this.DepsLog_.GetDeps(ni) != nil {
				nodes = append(nodes, ni)
			}
		}
	} else {
		err := ""
		if !this.CollectTargetsFromArgs(args, &nodes, &err) {
			Error("%s", err)
			return 1
		}
	}

	exit_code := 0
	for _, it := range nodes {
		deps := this.DepsLog_.GetDeps(it)
		if deps == nil {
			continue
		}

		mtime, notExist, err := this.DiskInterface.StatNode(it)
		if err != nil {
			Error("%s", err.Error())
		}
		if notExist || mtime != deps.mtime {
			color.Red("%s: STALE (recorded mtime %d, on disk %d)", it.path(), deps.mtime, mtime)
			exit_code = 3
		} else {
			color.Green("%s: VALID", it.path())
		}

		for i := 0; i < deps.node_count; i++ {
			in := deps.nodes[i]
			digest, inNotExist, derr := ContentDigest(in.path())
			if derr != nil {
				Error("%s", derr.Error())
				continue
			}
			if inNotExist {
				color.Yellow("    %s: missing", in.path())
				exit_code = 3
			} else {
				fmt.Printf("    %s (digest %016x)\n", in.path(), digest)
			}
		}
	}
	return exit_code
}

func (this *DepsLogMain) ToolRecompact(options *Options, args *[]string) int {
	// Without a manifest graph every recorded output is treated as still
	// wanted: synthesize an in-edge carrying a "deps" binding so the
	// liveness check keeps the entry.
	rule := NewRule("deps-scan")
	rule.AddBinding("deps", "log")
	for _, node := range this.DepsLog_.nodes() {
		if this.DepsLog_.GetDeps(node) == nil || node.in_edge() != nil {
			continue
		}
		edge := this.State_.AddEdge(rule)
		err := ""
		if !this.State_.AddOut(edge, node.path(), node.slash_bits(), &err) {
			Error("%s", err)
			return 1
		}
	}

	err := ""
	if !this.DepsLog_.Recompact(options.LogFile, &err) {
		Error("recompact failed: %s", err)
		return 1
	}
	return 0
}

func (this *DepsLogMain) ToolPush(options *Options, args *[]string) int {
	if options.RbeService == "" {
		Error("push requires a service URL (-r)")
		return 1
	}
	instance := options.RbeInstance
	if instance == "" {
		instance = DefaultInstanceName(options.LogFile)
	}
	if err := PushDepsLog(options.LogFile, options.RbeService, instance); err != nil {
		Error("push: %s", err.Error())
		return 1
	}
	Info("pushed %s to %s", options.LogFile, options.RbeService)
	return 0
}

func (this *DepsLogMain) ToolPull(options *Options, args *[]string) int {
	if options.RbeService == "" {
		Error("pull requires a service URL (-r)")
		return 1
	}
	instance := options.RbeInstance
	if instance == "" {
		instance = DefaultInstanceName(options.LogFile)
	}
	if err := PullDepsLog(options.LogFile, options.RbeService, instance); err != nil {
		Error("pull: %s", err.Error())
		return 1
	}
	Info("pulled %s from %s", options.LogFile, options.RbeService)
	return 0
}

func (this *DepsLogMain) ChooseTool(tool_name string) *Tool {
	kTools := []Tool{
		{"deps", "show dependencies stored in the deps log",
			RUN_AFTER_LOGS, this.ToolDeps},
		{"query", "show recorded outputs that depend on a path",
			RUN_AFTER_LOGS, this.ToolQuery},
		{"stats", "show deps log record counts and the oldest entries",
			RUN_AFTER_LOGS, this.ToolStats},
		{"check", "verify recorded entries against the files on disk",
			RUN_AFTER_LOGS, this.ToolCheck},
		{"recompact", "rewrite the deps log, dropping dead records",
			RUN_AFTER_LOGS, this.ToolRecompact},
		{"push", "upload the deps log to the sharing service",
			RUN_AFTER_FLAGS, this.ToolPush},
		{"pull", "download a shared deps log from the sharing service",
			RUN_AFTER_FLAGS, this.ToolPull},
	}

	if tool_name == "list" {
		fmt.Printf("depslog subtools:\n")
		for _, tool := range kTools {
			if tool.Desc != "" {
				fmt.Printf("%11s  %s\n", tool.Name, tool.Desc)
			}
		}
		return nil
	}

	for _, tool := range kTools {
		if tool.Name == tool_name {
			chosen := tool
			return &chosen
		}
	}

	words := []string{}
	for _, tool := range kTools {
		words = append(words, tool.Name)
	}
	suggestion := SpellcheckStringV(tool_name, words)
	if suggestion != "" {
		Fatal("unknown tool '%s', did you mean '%s'?", tool_name, suggestion)
	} else {
		Fatal("unknown tool '%s'", tool_name)
	}
	return nil
}

// / Print usage information.
func Usage() {
	fmt.Fprintf(os.Stderr,
		"usage: depslog [options] -t TOOL [targets...]\n"+
			"\n"+
			"options:\n"+
			"  -V         print depslog version (\"%s\")\n"+
			"  -f FILE    deps log file to operate on [default=%s]\n"+
			"  -t TOOL    run a subtool (use '-t list' to list subtools)\n"+
			"  -d MODE    enable debugging (use '-d list' to list modes)\n"+
			"  -r URL     deps sharing service URL (for push/pull)\n"+
			"  -R NAME    deps sharing service instance name\n",
		kDepsLogVersion, kDefaultLogFile)
}

// / Parse args for command-line options.
// / Returns an exit code, or -1 if depslog should keep going.
func (this *DepsLogMain) ReadFlags(args *[]string, options *Options) int {
	opts, optind, err := getopt.Getopts(*args, "d:f:t:r:R:hV")
	if err != nil {
		Error("%s", err.Error())
		Usage()
		return 1
	}
	*args = (*args)[optind:]
	for _, optV := range opts {
		opt := optV.Option
		optarg := optV.Value
		switch opt {
		case 'd':
			if !DebugEnable(optarg) {
				return 1
			}
		case 'f':
			options.LogFile = optarg
		case 't':
			options.Tool = this.ChooseTool(optarg)
			if options.Tool == nil {
				return 0
			}
		case 'r':
			options.RbeService = optarg
		case 'R':
			options.RbeInstance = optarg
		case 'V':
			fmt.Printf("%s\n", kDepsLogVersion)
			return 0
		default: // case 'h':
			Usage()
			return 1
		}
	}
	return -1
}
