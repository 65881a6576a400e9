package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/alphasentinel/internal/pipeline"
	"github.com/ppiankov/alphasentinel/internal/worker"
)

var (
	batchFlags   runFlags
	concurrency  int
	outputDir    string
	listFile     string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [transcript|dir|glob]...",
	Short: "Verify many transcripts against one filing in parallel",
	Long: `Batch indexes the filing once, then verifies each transcript concurrently:
- Transcripts come from arguments (files, directories of .txt files, globs)
  or from a list file with one path per line
- Each transcript gets its own JSON and Markdown report

Example:
  alphasentinel batch --filing 10k.txt calls/
  alphasentinel batch --filing 10k.txt --list transcripts.txt --concurrency 4
  alphasentinel batch --filing 10k.txt "calls/*_q?.txt" --output-dir ./reports`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchFlags.register(batchCmd, true)
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of transcripts verified concurrently")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./alphasentinel-reports", "output directory for reports")
	batchCmd.Flags().StringVar(&listFile, "list", "", "file listing transcript paths, one per line")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	if listFile == "" && len(args) == 0 {
		return fmt.Errorf("no transcripts given (pass paths or --list)")
	}

	cfg, err := configFromFlags(cmd, &batchFlags)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  AlphaSentinel Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Filing:       %s\n", batchFlags.filing)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "  LLM:          %s %s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "\n")

	paths, err := collectTranscripts(args)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Found %d transcripts\n", len(paths))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	eng, err := newEngine(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer eng.Close()

	fmt.Fprintf(os.Stderr, "⚙️  Indexing filing...\n")
	idx, err := eng.buildIndex(ctx, batchFlags.filing)
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()
	fmt.Fprintf(os.Stderr, "✓ Filing index ready (%d passages)\n", idx.Len())

	p := eng.newPipeline(idx)
	processor := worker.NewBatchProcessor(p, concurrency)

	fmt.Fprintf(os.Stderr, "⚙️  Verifying transcripts with %d workers...\n\n", concurrency)
	results := processor.ProcessPaths(ctx, paths)

	successCount := 0
	failureCount := 0
	renderer := p.Renderer()
	used := make(map[string]int)

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}

		report := p.BuildReport(result.Run, pipeline.ReportSources{
			Transcript: result.Path,
			Filing:     batchFlags.filing,
			Index:      idx.Info(),
			LLM:        eng.llmInfo(),
		})

		slug := uniqueSlug(sanitizeFilename(report.Subject), used)
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")

		if err := renderer.RenderJSON(report, jsonPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Path, err)
			continue
		}
		if err := renderer.RenderMarkdown(report, mdPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Path, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (%d claims, %d high risk, trust %s)\n",
			report.Subject, report.Summary.TotalClaims, report.Summary.HighRiskCount,
			pipeline.FormatTrust(report.Summary.TrustScore))
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d transcripts\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d transcripts failed", failureCount)
	}
	return nil
}

// collectTranscripts merges the list file and argument paths
func collectTranscripts(args []string) ([]string, error) {
	var paths []string
	if listFile != "" {
		listed, err := worker.ReadPathsFromFile(listFile)
		if err != nil {
			return nil, err
		}
		paths = append(paths, listed...)
	}
	if len(args) > 0 {
		expanded, err := worker.ExpandPaths(args)
		if err != nil {
			return nil, err
		}
		paths = append(paths, expanded...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no transcripts found")
	}
	return paths, nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".")
	if s == "" {
		s = "report"
	}

	// Limit length
	if r := []rune(s); len(r) > 100 {
		s = string(r[:100])
	}
	return s
}

// uniqueSlug appends a counter when two transcripts share a name
func uniqueSlug(slug string, used map[string]int) string {
	n := used[slug]
	used[slug] = n + 1
	if n == 0 {
		return slug
	}
	return fmt.Sprintf("%s-%d", slug, n+1)
}
