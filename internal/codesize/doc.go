// Package codesize provides per-extension file statistics.
//
// It walks directory trees (or the tracked files of a git index), extracts
// one metric per regular file (file count, byte size or newline count),
// aggregates it by file extension either as a sum or as the largest files
// per extension, and renders a line-oriented report.
package codesize
