package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/idelchi/codesize/internal/codesize"
	"github.com/idelchi/codesize/internal/config"
)

// CLI represents the command-line interface.
type CLI struct {
	version string
	stdout  io.Writer
	stderr  io.Writer
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version, stdout: os.Stdout, stderr: os.Stderr}
}

// flags holds the raw flag values before they are merged with the config file.
type flags struct {
	size       bool
	count      bool
	human      bool
	git        bool
	largest    int
	extensions []string
	excludes   []string
	minSize    string
	walker     string
	workers    int
	output     string
	configPath string
	depth      int
	debug      bool
	progress   bool
}

// settings is the merged result handed to logic.
type settings struct {
	options codesize.Options
	human   bool
	output   string
	debug    bool
	progress bool
}

// Command builds the root cobra command. Args are read from os.Args unless
// SetArgs is called on the result.
func (c CLI) Command() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "codesize [flags] [path]",
		Short: "Report lines, bytes or file counts per file extension",
		Long: heredoc.Doc(`
			codesize scans a directory and reports a metric per file extension.

			Metrics:
			  Lines (default) counts newline characters.
			  Use --size to sum file sizes or --count to count files.

			Modes:
			  Default mode prints one total per extension, largest first.
			  Use --largest N to list the N largest files of each extension instead.

			Sources:
			  The tree is walked with file descriptors (--walker fd) or with a
			  parallel metadata walk (--walker fast). With --git only the files
			  tracked in the git index of path are considered.

			Defaults are read from .codesize.yaml in the working directory when it
			exists (see --config); flags given on the command line take precedence.
		`),
		Args:          cobra.MaximumNArgs(1),
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolve(cmd.Flags(), f, args)
			if err != nil {
				return err
			}

			return logic(cmd.Context(), s, c.stdout, c.stderr)
		},
	}

	fs := cmd.Flags()
	fs.SortFlags = false
	fs.BoolVarP(&f.size, "size", "s", false, "Sum file sizes")
	fs.BoolVarP(&f.count, "count", "c", false, "Count files")
	fs.BoolVarP(&f.human, "human", "H", false, "Output human-readable numbers")
	fs.IntVarP(&f.largest, "largest", "l", 0, "Output the N largest files per extension")
	fs.StringSliceVarP(
		&f.extensions,
		"ext",
		"x",
		[]string{},
		"Extensions to include (e.g., go,md). Use '!' prefix to exclude (e.g., !log)",
	)
	fs.BoolVar(&f.git, "git", false, "Only look at files in the git index")
	fs.StringVar(&f.walker, "walker", codesize.SourceDescriptor, "Traversal strategy: fd or fast")
	fs.StringSliceVarP(
		&f.excludes,
		"exclude",
		"e",
		config.DefaultExcludes,
		"Regex patterns to exclude; .git and node_modules are skipped unless this is set (use --exclude '' to count everything)",
	)
	fs.IntVarP(&f.depth, "depth", "d", 0, "Maximum traversal depth (0=unlimited)")
	fs.StringVar(&f.minSize, "min-size", "0B", "Minimum file size (e.g., 1KB)")
	fs.IntVarP(&f.workers, "workers", "j", 0, "Parallel workers for --walker fast and --git (0=auto)")
	fs.StringVarP(&f.output, "output", "o", "text", "Output format: text or json")
	fs.StringVar(&f.configPath, "config", config.DefaultPath, "Defaults file")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug output")
	fs.BoolVar(&f.progress, "progress", false, "Show the progress line on stderr even when it is not a terminal")

	cmd.MarkFlagsMutuallyExclusive("size", "count")

	return cmd
}

// Execute runs the CLI with the process arguments.
func (c CLI) Execute() error {
	return c.Command().Execute()
}

// resolve merges the config file with the flags the user set explicitly.
//
//nolint:gocognit,cyclop // Flat precedence rules
func resolve(fs *pflag.FlagSet, f flags, args []string) (settings, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return settings{}, err
	}

	metric, err := codesize.ParseMetric(cfg.Metric)
	if err != nil {
		return settings{}, err
	}

	switch {
	case f.size:
		metric = codesize.Bytes
	case f.count:
		metric = codesize.Files
	}

	s := settings{
		human:    cfg.Human,
		output:   cfg.Output,
		debug:    f.debug,
		progress: f.progress,
		options: codesize.Options{
			Path:       ".",
			Metric:     metric,
			Extensions: cfg.Extensions,
			Excludes:   cfg.Excludes,
			Source:     cfg.Source,
			Workers:    cfg.Workers,
			Depth:      cfg.Depth,
		},
	}

	if len(args) > 0 {
		s.options.Path = args[0]
	}

	if cfg.Largest != nil {
		s.options.TopK = true
		s.options.Largest = *cfg.Largest
	}

	if fs.Changed("largest") {
		if f.largest < 0 {
			return settings{}, errors.New("largest cannot be negative")
		}

		s.options.TopK = true
		s.options.Largest = f.largest
	}

	if fs.Changed("human") {
		s.human = f.human
	}

	if fs.Changed("ext") {
		s.options.Extensions = f.extensions
	}

	if fs.Changed("exclude") {
		s.options.Excludes = nonEmpty(f.excludes)
	}

	if fs.Changed("depth") {
		s.options.Depth = f.depth
	}

	if s.options.Depth < 0 {
		return settings{}, errors.New("depth cannot be negative")
	}

	if fs.Changed("walker") {
		s.options.Source = f.walker
	}

	if f.git {
		s.options.Source = codesize.SourceGit
	}

	if fs.Changed("workers") {
		s.options.Workers = f.workers
	}

	if fs.Changed("output") {
		s.output = f.output
	}

	if s.output != "text" && s.output != "json" {
		return settings{}, fmt.Errorf("invalid output format %q: must be one of text, json", s.output)
	}

	if s.options.Workers < 0 {
		return settings{}, errors.New("workers cannot be negative")
	}

	minSizeStr := cfg.MinSize
	if fs.Changed("min-size") {
		minSizeStr = f.minSize
	}

	// Parse minSize string to bytes
	if minSizeStr != "" {
		size, err := humanize.ParseBytes(minSizeStr)
		if err != nil {
			return settings{}, fmt.Errorf("invalid min-size: %w", err)
		}

		s.options.MinSize = int64(size) //nolint:gosec // Size conversion from humanize is safe
	}

	return s, nil
}

// nonEmpty drops empty patterns so --exclude '' clears the defaults.
func nonEmpty(patterns []string) []string {
	out := make([]string, 0, len(patterns))

	for _, p := range patterns {
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
