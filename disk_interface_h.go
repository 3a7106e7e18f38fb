package main

type StatusEnum int8

const (
	Okay       StatusEnum = 0
	NotFound   StatusEnum = 1
	OtherError StatusEnum = 2
)

// / Interface for reading files from disk.  See DiskInterface for details.
// / This base offers the minimum interface needed just to read files.
type FileReader interface {
	StatNode(node *Node) (mtime TimeStamp, notExist bool, err error)
	ReadFile(path string, contents *string, err *string) StatusEnum
}

// / Interface for accessing the disk.
// /
// / Abstract so it can be mocked out for tests.  The real implementation
// / is RealDiskInterface.
type DiskInterface interface {
	FileReader
	WriteFile(path string, contents string) bool
	MakeDir(path string) bool
	MakeDirs(path string, err *string) bool
	RemoveFile(path string) int
}
