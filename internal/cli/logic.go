package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/idelchi/codesize/internal/codesize"
)

// newLogger writes text logs to w, at debug level when requested.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// progressLine renders a progress snapshot for the metric being collected.
func progressLine(metric codesize.Metric, p codesize.Progress) string {
	switch metric {
	case codesize.Bytes:
		return fmt.Sprintf("Scanning… %s files, %s", humanize.Comma(p.Files), humanize.IBytes(p.Total))
	case codesize.Lines:
		return fmt.Sprintf("Scanning… %s files, %s lines", humanize.Comma(p.Files), humanize.Comma(int64(p.Total))) //nolint:gosec // Line counts fit
	default:
		return fmt.Sprintf("Scanning… %s files", humanize.Comma(p.Files))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && isatty.IsTerminal(f.Fd())
}

func logic(ctx context.Context, s settings, stdout, stderr io.Writer) error {
	s.options.Logger = newLogger(stderr, s.debug)

	enableProgress := s.output != "json" && !s.debug && (s.progress || isTerminal(stderr))

	// Simple progress callback that prints directly to stderr
	var progressHook func(codesize.Progress)

	if enableProgress {
		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(stderr, "\033[?25l")
		defer fmt.Fprint(stderr, "\033[?25h")

		progressHook = func(p codesize.Progress) {
			fmt.Fprintf(stderr, "\r\033[2K%s\r", progressLine(s.options.Metric, p))
		}
	}

	collector, err := codesize.Run(ctx, s.options, progressHook)

	// Clear the status line
	if enableProgress {
		fmt.Fprint(stderr, "\r\033[2K\r")
	}

	if err != nil {
		return err
	}

	switch s.output {
	case "json":
		return PrintJSON(collector, s.options.Metric, stdout)
	default:
		var base uint64
		if s.human {
			base = s.options.Metric.HumanBase()
		}

		return collector.Finish(stdout, base)
	}
}
