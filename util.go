package main

import (
	"fmt"
	"os"
)

// / Log a fatal message and exit.
func Fatal(msg string, ap ...interface{}) {
	fmt.Fprintf(os.Stderr, "depslog: fatal: "+msg+"\n", ap...)
	os.Exit(1)
}

// / Log a warning message.
func Warning(msg string, ap ...interface{}) {
	fmt.Fprintf(os.Stderr, "depslog: warning: "+msg+"\n", ap...)
}

// / Log an error message.
func Error(msg string, ap ...interface{}) {
	fmt.Fprintf(os.Stderr, "depslog: error: "+msg+"\n", ap...)
}

// / Log an informational message.
func Info(msg string, ap ...interface{}) {
	fmt.Fprintf(os.Stdout, "depslog: "+msg+"\n", ap...)
}

// / Given a misspelled string and a list of correct spellings, returns
// / the closest candidate or "" if there is none within a sane edit distance.
func SpellcheckStringV(text string, words []string) string {
	kAllowReplacements := true
	kMaxValidEditDistance := 3

	min_distance := kMaxValidEditDistance + 1
	result := ""
	for _, word := range words {
		distance := EditDistance(word, text, kAllowReplacements, kMaxValidEditDistance)
		if distance < min_distance {
			min_distance = distance
			result = word
		}
	}
	return result
}
