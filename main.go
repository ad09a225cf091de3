package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/photosphere/fast-tree-walk-go/lib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	ExitSuccess  = 0
	ExitUsage    = 1
	ExitFatal    = 2
	ExitNonFatal = 3
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitUsage)
	}
}

var sortEntries bool
var serial bool
var numWorkers int
var minDepth int
var maxDepth int
var followLinks bool
var skipHidden bool
var checksum bool
var hashAlg string
var outputFormat string
var verbose bool
var quiet bool

var rootCmd = &cobra.Command{
	Use:   "ftw <dir>",
	Short: "Fast parallel tree walk",
	Long:  "Recursively walk a directory tree, reading directories in parallel while streaming entries in deterministic depth-first order.",
	Args:  cobra.MatchAll(cobra.ArbitraryArgs, requireZeroOrOneArgs),
	RunE:  runRoot,
}

func init() {
	rootCmd.Flags().BoolVar(&sortEntries, "sort", false, "Sort each directory's entries byte-wise by name")
	rootCmd.Flags().BoolVar(&serial, "serial", false, "Walk on the calling goroutine with no worker pool")
	rootCmd.Flags().IntVar(&numWorkers, "workers", 0, "Number of directory-reading workers (0 = adaptive)")
	rootCmd.Flags().IntVar(&minDepth, "min-depth", 0, "Do not print entries shallower than this depth")
	rootCmd.Flags().IntVar(&maxDepth, "max-depth", -1, "Do not descend past this depth (-1 = unbounded)")
	rootCmd.Flags().BoolVar(&followLinks, "follow-links", false, "Descend into directory symlinks (with cycle detection)")
	rootCmd.Flags().BoolVar(&skipHidden, "skip-hidden", false, "Skip entries whose name begins with a dot")
	rootCmd.Flags().BoolVar(&checksum, "checksum", false, "Compute a content hash for each regular file")
	rootCmd.Flags().StringVar(&hashAlg, "hash", "xxhash", "Hash algorithm for --checksum: xxhash, sha256, md5")
	rootCmd.Flags().StringVar(&outputFormat, "format", "text", "Output format: text, json, yaml")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "Log walk internals to stderr")
	rootCmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress the progress line (for scripting)")
}

func requireZeroOrOneArgs(cmd *cobra.Command, args []string) error {
	if len(args) <= 1 {
		return nil
	}
	return fmt.Errorf("requires 0 or 1 arguments, got %d", len(args))
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		cmd.SetOut(os.Stdout)
		return cmd.Usage()
	}
	root := args[0]

	logger := zap.NewNop()
	if verbose {
		devLogger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger: %v\n", err)
			os.Exit(ExitFatal)
		}
		defer devLogger.Sync()
		logger = devLogger
	}

	walker := lib.NewWalker[struct{}](root).
		Sort(sortEntries).
		SkipHidden(skipHidden).
		FollowLinks(followLinks).
		MinDepth(minDepth).
		MaxDepth(maxDepth).
		Logger(logger)
	if serial {
		walker.Parallelism(lib.Serial())
	} else {
		walker.Parallelism(lib.Fixed(numWorkers))
	}

	iter, err := walker.Iter()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(ExitUsage)
	}
	defer iter.Close()

	var scanned atomic.Int64
	progressDone := make(chan struct{})
	if !quiet && IsTTY(os.Stderr) {
		go progressLoop(&scanned, progressDone)
	}

	var rows []EntryRow
	streaming := outputFormat == "text"
	nonFatal := 0
	fatal := false
	for {
		entry, ok := iter.Next()
		if !ok {
			break
		}
		scanned.Add(1)
		row := buildRow(entry)
		if entry.Err != nil {
			nonFatal++
			if entry.Depth == 0 {
				fatal = true
			}
		}
		if entry.ReadChildrenErr != nil {
			nonFatal++
		}
		if checksum && entry.Err == nil && entry.Type == lib.TypeRegular {
			digest, hashErr := lib.HashFile(entry.Path(), hashAlg)
			if hashErr != nil {
				nonFatal++
				row.Error = hashErr.Error()
			} else {
				row.Hash = digest
			}
		}
		if streaming {
			FormatTextRow(row, os.Stdout)
		} else {
			rows = append(rows, row)
		}
	}
	close(progressDone)

	switch outputFormat {
	case "json":
		FormatJSON(rows, os.Stdout)
	case "yaml":
		FormatYAML(rows, os.Stdout)
	}

	if fatal {
		os.Exit(ExitFatal)
	}
	if nonFatal > 0 {
		if !quiet {
			fmt.Fprintf(os.Stderr, "%d entries had errors\n", nonFatal)
		}
		os.Exit(ExitNonFatal)
	}
	return nil
}

// progressLoop repaints a scanned-entries counter on stderr until done closes.
func progressLoop(scanned *atomic.Int64, doneCh <-chan struct{}) {
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-doneCh:
			return
		case <-tick.C:
			fmt.Fprintf(os.Stderr, "\rscanned: %d entries   ", scanned.Load())
		}
	}
}

// IsTTY reports whether file is attached to a terminal.
func IsTTY(file *os.File) bool {
	if file == nil {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
