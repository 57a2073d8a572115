package codesize

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Metric selects the quantity aggregated per extension.
type Metric int

const (
	// Lines counts newline bytes.
	Lines Metric = iota
	// Bytes sums file sizes.
	Bytes
	// Files counts files.
	Files
)

// ChunkSize is the read buffer size used when counting lines.
const ChunkSize = 102_400

func (m Metric) String() string {
	switch m {
	case Lines:
		return "lines"
	case Bytes:
		return "bytes"
	case Files:
		return "files"
	default:
		return fmt.Sprintf("Metric(%d)", int(m))
	}
}

// ParseMetric parses a metric name as printed by Metric.String.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lines", "":
		return Lines, nil
	case "bytes", "size":
		return Bytes, nil
	case "files", "count":
		return Files, nil
	default:
		return Lines, fmt.Errorf("unknown metric %q: must be one of lines, bytes, files", s)
	}
}

// HumanBase returns the divisor used for human-readable scaling of this metric.
func (m Metric) HumanBase() uint64 {
	if m == Bytes {
		return 1024
	}

	return 1000
}

// File is a regular file handed to a VisitFunc.
type File interface {
	// Size is the length reported by filesystem metadata (or the index).
	Size() int64
	// Open returns a reader over the file content. The caller must close it.
	Open() (io.ReadCloser, error)
}

// ReadMetric computes the metric for f. Only Lines touches the file content.
func ReadMetric(kind Metric, path string, f File) (uint64, error) {
	switch kind {
	case Files:
		return 1, nil
	case Bytes:
		return uint64(max(f.Size(), 0)), nil //nolint:gosec // Clamped to non-negative
	case Lines:
		r, err := f.Open()
		if err != nil {
			return 0, asScanError(ErrOpen, "open", path, err)
		}
		defer r.Close()

		n, err := CountLines(r)
		if err != nil {
			return 0, ioError("read", path, err)
		}

		return n, nil
	default:
		return 0, fmt.Errorf("unknown metric %v", kind)
	}
}

// CountLines counts newline bytes in r, reading ChunkSize bytes at a time.
// A trailing line without a newline is not counted. Short reads do not end
// the scan; only a zero-length read or io.EOF does.
func CountLines(r io.Reader) (uint64, error) {
	buf := make([]byte, ChunkSize)

	var lines uint64

	for {
		n, err := r.Read(buf)
		lines += uint64(bytes.Count(buf[:n], []byte{'\n'})) //nolint:gosec // Count is non-negative

		if errors.Is(err, io.EOF) {
			return lines, nil
		}

		if err != nil {
			return lines, err
		}

		if n == 0 {
			return lines, nil
		}
	}
}

// Extension returns the substring of the base name after its last dot, or
// the empty string when there is none. A leading dot alone (".bashrc") does
// not start an extension.
func Extension(path string) string {
	base := filepath.Base(path)

	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 {
		return ""
	}

	return base[dot+1:]
}
