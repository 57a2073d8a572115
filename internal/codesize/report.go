package codesize

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// humanThreshold is the value from which FormatHuman divides by the base.
const humanThreshold = 10_000

var humanSuffixes = []string{"K", "M", "G", "T"} //nolint:gochecknoglobals // Unit table

// FormatHuman renders n. With a zero base the raw integer is printed.
// Otherwise n is divided by base while it is at least 10000, at most four
// times, and the matching K, M, G or T suffix is appended.
func FormatHuman(n, base uint64) string {
	if base == 0 {
		return strconv.FormatUint(n, 10)
	}

	suffix := ""

	for _, s := range humanSuffixes {
		if n < humanThreshold {
			break
		}

		n /= base
		suffix = s
	}

	return strconv.FormatUint(n, 10) + suffix
}

// label renders ext with its leading dot; the empty extension stays empty.
func label(ext string) string {
	if ext == "" {
		return ""
	}

	return "." + ext
}

// labelWidth is the byte length of the longest extension plus one for the
// dot, or zero when only the empty extension was seen.
func labelWidth(rows []ExtTotal) int {
	width := 0
	for _, row := range rows {
		width = max(width, len(row.Ext))
	}

	if width > 0 {
		width++
	}

	return width
}

func writeSums(w io.Writer, rows []ExtTotal, base uint64) error {
	if len(rows) == 0 {
		return nil
	}

	bw := bufio.NewWriter(w)
	width := labelWidth(rows)

	for _, row := range rows {
		l := label(row.Ext)
		fmt.Fprintf(bw, "%s%s %s\n", l, strings.Repeat(" ", width-len(l)), FormatHuman(row.Total, base))
	}

	return bw.Flush()
}

func writeTopK(w io.Writer, largest map[string][]FileStat, base uint64) error {
	if len(largest) == 0 {
		return nil
	}

	exts := make([]string, 0, len(largest))
	for ext := range largest {
		exts = append(exts, ext)
	}

	slices.Sort(exts)

	bw := bufio.NewWriter(w)

	for _, ext := range exts {
		fmt.Fprintln(bw, ext)

		for _, f := range largest[ext] {
			fmt.Fprintf(bw, "  %s %s\n", FormatHuman(f.Size, base), f.Path)
		}
	}

	return bw.Flush()
}
