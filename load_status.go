package main

type LoadStatus int8

const (
	LOAD_ERROR     LoadStatus = 0
	LOAD_SUCCESS   LoadStatus = 1
	LOAD_NOT_FOUND LoadStatus = 2
	/// The log had an unreadable tail (interrupted or racing writer); the
	/// readable prefix was loaded and the file truncated to it.
	LOAD_CORRUPTED_TAIL LoadStatus = 3
)
