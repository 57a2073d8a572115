// Command codesize reports lines, bytes or file counts per file extension.
package main

import (
	"log/slog"
	"os"

	"github.com/idelchi/codesize/internal/cli"
)

// version is set at build time with -ldflags.
var version = "unknown - unofficial & generated by unknown"

func main() {
	if err := cli.New(version).Execute(); err != nil {
		slog.Error("codesize failed", "error", err)
		os.Exit(1)
	}
}
