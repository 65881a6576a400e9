package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/alphasentinel/internal/adjudicate"
)

var (
	indexFlags   runFlags
	queryFlags   runFlags
	queryK       int
	indexTimeout time.Duration
)

// indexCmd groups evidence index commands
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect the evidence index built from a filing",
	Long: `The evidence index splits the filing into overlapping passages and embeds
each one. It lives in memory for one run; building it ahead of time warms the
embedding cache so later analyses of the same filing skip re-embedding.`,
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Split and embed a filing, warming the embedding cache",
	Long: `Build loads the filing, splits it into passages and embeds them.

Example:
  alphasentinel index build --filing data/tesla_10k.txt
  alphasentinel index build --filing https://www.sec.gov/... --embedding-provider ollama`,
	Args: cobra.NoArgs,
	RunE: runIndexBuild,
}

var indexQueryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Show the passages retrieved for a query",
	Long: `Query builds the index and prints the top passages for the query text,
the same evidence a claim with that text would be adjudicated against.

Example:
  alphasentinel index query --filing 10k.txt "Cybertruck deliveries" -k 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndexQuery,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexQueryCmd)

	indexFlags.register(indexBuildCmd, false)
	indexBuildCmd.Flags().DurationVar(&indexTimeout, "timeout", 10*time.Minute, "index build timeout")

	queryFlags.register(indexQueryCmd, false)
	indexQueryCmd.Flags().IntVarP(&queryK, "top-k", "k", 2, "number of passages to show")
	indexQueryCmd.Flags().DurationVar(&indexTimeout, "timeout", 10*time.Minute, "index build and query timeout")
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), indexTimeout)
	defer cancel()

	cfg, err := configFromFlags(cmd, &indexFlags)
	if err != nil {
		return err
	}

	eng, err := newEngine(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer eng.Close()

	start := time.Now()
	fmt.Fprintf(os.Stderr, "⚙️  Indexing %s...\n", indexFlags.filing)
	idx, err := eng.buildIndex(ctx, indexFlags.filing)
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	info := idx.Info()
	pages := 0
	for _, p := range idx.Passages() {
		if p.Page > pages {
			pages = p.Page
		}
	}

	fmt.Fprintf(os.Stderr, "✓ Indexed in %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Passages:   %d\n", info.Passages)
	fmt.Printf("Pages:      %d\n", pages)
	fmt.Printf("Dimension:  %d\n", info.Dimension)
	fmt.Printf("Chunk size: %d (overlap %d)\n", cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	fmt.Printf("Hybrid:     %t\n", info.Hybrid)
	fmt.Printf("Cache:      %t\n", cfg.Cache.Enabled)
	return nil
}

func runIndexQuery(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), indexTimeout)
	defer cancel()

	cfg, err := configFromFlags(cmd, &queryFlags)
	if err != nil {
		return err
	}

	eng, err := newEngine(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer eng.Close()

	idx, err := eng.buildIndex(ctx, queryFlags.filing)
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	query := strings.Join(args, " ")
	hits, err := idx.Query(ctx, query, queryK)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	if len(hits) == 0 {
		fmt.Println("No passages found.")
		return nil
	}

	for i, h := range hits {
		fmt.Printf("#%d  score %.4f  page %d  runes %d-%d\n", i+1, h.Score, h.Passage.Page, h.Passage.Start, h.Passage.End)
		fmt.Printf("    %s\n\n", adjudicate.Snippet(h.Passage.Text, cfg.Adjudication.SnippetLength))
	}
	return nil
}
