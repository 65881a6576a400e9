package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/alphasentinel/internal/model"
)

// Runner verifies one transcript against an already built evidence index
type Runner interface {
	RunFile(ctx context.Context, transcriptPath string) (*model.RunResult, error)
}

// TranscriptJob represents one transcript verification job
type TranscriptJob struct {
	Path   string
	Runner Runner
}

// Execute executes the transcript job
func (j *TranscriptJob) Execute(ctx context.Context) Result {
	run, err := j.Runner.RunFile(ctx, j.Path)
	if err != nil {
		return &TranscriptResult{Path: j.Path, Error: err}
	}
	return &TranscriptResult{Path: j.Path, Run: run}
}

// TranscriptResult represents the result of a transcript job
type TranscriptResult struct {
	Path  string
	Run   *model.RunResult
	Error error
}

// GetError returns the error from the transcript result
func (r *TranscriptResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies multiple transcripts concurrently
type BatchProcessor struct {
	runner      Runner
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(runner Runner, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
	}
}

// ProcessPaths verifies the transcripts concurrently; results follow input order
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*TranscriptResult {
	if len(paths) == 0 {
		return []*TranscriptResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for _, path := range paths {
		pool.Submit(&TranscriptJob{
			Path:   path,
			Runner: b.runner,
		})
	}

	results := pool.Wait()

	out := make([]*TranscriptResult, len(results))
	for i, result := range results {
		out[i] = result.(*TranscriptResult)
	}

	return out
}

// ProcessFile reads transcript paths from a list file and verifies them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, listPath string) ([]*TranscriptResult, error) {
	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read paths: %w", err)
	}

	return b.ProcessPaths(ctx, paths), nil
}

// ReadPathsFromFile reads transcript paths from a file (one per line).
// Relative paths resolve against the list file's directory.
func ReadPathsFromFile(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(listPath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}

// ExpandPaths turns directories into their .txt files and globs into matches.
// Plain file arguments pass through; the result is deduplicated.
func ExpandPaths(args []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			matches, err := filepath.Glob(filepath.Join(arg, "*.txt"))
			if err != nil {
				return nil, err
			}
			sort.Strings(matches)
			for _, m := range matches {
				add(m)
			}
		case err == nil:
			add(arg)
		default:
			matches, globErr := filepath.Glob(arg)
			if globErr != nil || len(matches) == 0 {
				return nil, fmt.Errorf("no transcript at %s", arg)
			}
			sort.Strings(matches)
			for _, m := range matches {
				add(m)
			}
		}
	}
	return out, nil
}
