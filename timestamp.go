package main

// / A 64-bit timestamp, used for file mtimes. Only ever compared against
// / other timestamps, never converted back to wall-clock time.
// / Possible values:
// /   -1: file hasn't been examined
// /   0:  we looked, and file doesn't exist
// /   >0: the file's mtime
type TimeStamp int64
