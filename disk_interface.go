package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

type RealDiskInterface struct {
}

func NewRealDiskInterface() *RealDiskInterface {
	return &RealDiskInterface{}
}

func DirName(path string) string {
	dir := filepath.Dir(path)
	if dir == "." {
		return ""
	}
	return dir
}

// / stat() a file, returning the mtime in nanoseconds, or 0 if missing and
// / an error if there was other trouble.
func (this *RealDiskInterface) StatNode(node *Node) (mtime TimeStamp, notExist bool, err error) {
	return this.Stat(node.path())
}

func (this *RealDiskInterface) Stat(path string) (mtime TimeStamp, notExist bool, err error) {
	info, err1 := os.Stat(path)
	if err1 != nil {
		if errors.Is(err1, os.ErrNotExist) {
			return 0, true, nil
		}
		return -1, true, err1
	}
	return TimeStamp(info.ModTime().UnixNano()), false, nil
}

// / Create a directory, returning false on failure.
func (this *RealDiskInterface) MakeDir(path string) bool {
	err := os.Mkdir(path, os.ModePerm)
	return err == nil
}

// / Create all the parent directories for path; like mkdir -p
// / `basename path`.
func (this *RealDiskInterface) MakeDirs(path string, err1 *string) bool {
	dir := DirName(path)
	if dir == "" {
		return true // Reached root; assume it's there.
	}
	_, notExist, err := this.Stat(dir)
	if err != nil {
		*err1 = err.Error()
		return false
	}
	if !notExist {
		return true // Exists already; we're done.
	}
	// Directory doesn't exist.  Try creating its parent first.
	if !this.MakeDirs(dir, err1) {
		return false
	}
	return this.MakeDir(dir)
}

// / Create a file, with the specified name and contents
// / Returns true on success, false on failure
func (this *RealDiskInterface) WriteFile(path string, contents string) bool {
	fp, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0664)
	if err != nil {
		Error("WriteFile(%s): Unable to create file. %v", path, err)
		return false
	}

	_, err = io.WriteString(fp, contents)
	if err != nil {
		Error("WriteFile(%s): Unable to write to the file. %v", path, err)
		fp.Close()
		return false
	}

	if err = fp.Close(); err != nil {
		Error("WriteFile(%s): Unable to close the file. %v", path, err)
		return false
	}
	return true
}

func (this *RealDiskInterface) ReadFile(path string, contents *string, err *string) StatusEnum {
	buf, err1 := os.ReadFile(path)
	if err1 != nil {
		*err = err1.Error()
		if errors.Is(err1, os.ErrNotExist) {
			return NotFound
		}
		return OtherError
	}
	*contents = string(buf)
	return Okay
}

// / Remove the file named @a path. It behaves like 'rm -f path' so no errors
// / are reported if it does not exists.
// / @returns 0 if the file has been removed,
// /          1 if the file does not exist, and
// /          -1 if an error occurs.
func (this *RealDiskInterface) RemoveFile(path string) int {
	err := os.Remove(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 1
		}
		return -1
	}
	return 0
}
