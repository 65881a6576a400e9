package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/alphasentinel/internal/document"
	"github.com/ppiankov/alphasentinel/internal/pipeline"
)

var (
	analyzeFlags   runFlags
	transcriptPath string
	outJSON        string
	outMD          string
	timeout        time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Verify the claims of one earnings call transcript against a filing",
	Long: `Analyze runs one verification:
- Index the filing into overlapping passages
- Extract up to three salient, checkable claims from the transcript
- Retrieve the most relevant passages for each claim
- Score each claim's discrepancy with the evidence from 1 to 10

Example:
  alphasentinel analyze --transcript data/tesla_call.txt --filing data/tesla_10k.txt
  alphasentinel analyze --transcript call.txt --filing 10k.txt --json report.json --md report.md
  alphasentinel analyze --transcript call.txt --filing https://www.sec.gov/... --llm-provider anthropic`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeFlags.register(analyzeCmd, true)
	analyzeCmd.Flags().StringVar(&transcriptPath, "transcript", "", "earnings call transcript (UTF-8 text)")
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall analysis timeout")
	_ = analyzeCmd.MarkFlagRequired("transcript")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	// The transcript is checked before any filing or provider work
	transcript, err := document.LoadTranscript(transcriptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Transcript not loaded\n")
		return fmt.Errorf("analysis failed: %w: %w", pipeline.ErrMissingTranscript, err)
	}

	cfg, err := configFromFlags(cmd, &analyzeFlags)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Transcript: %s\n", transcriptPath)
		fmt.Fprintf(os.Stderr, "Filing:     %s\n", analyzeFlags.filing)
		fmt.Fprintf(os.Stderr, "LLM:        %s %s\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Embeddings: %s %s\n", cfg.Embedding.Provider, cfg.Embedding.Model)
		fmt.Fprintln(os.Stderr)
	}

	eng, err := newEngine(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer eng.Close()

	if verbose {
		if eng.provider.IsAvailable(ctx) {
			fmt.Fprintf(os.Stderr, "✓ LLM provider %s reachable\n", eng.provider.Name())
		} else {
			fmt.Fprintf(os.Stderr, "✗ LLM provider %s not reachable\n", eng.provider.Name())
		}
	}

	// Status report: filing index and transcript readiness
	fmt.Fprintf(os.Stderr, "⚙️  Indexing filing...\n")
	idx, err := eng.buildIndex(ctx, analyzeFlags.filing)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	defer func() { _ = idx.Close() }()
	if idx.Len() > 0 {
		fmt.Fprintf(os.Stderr, "✓ Filing index ready (%d passages)\n", idx.Len())
	} else {
		fmt.Fprintf(os.Stderr, "✗ Filing index empty, claims will have no evidence\n")
	}

	fmt.Fprintf(os.Stderr, "✓ Transcript loaded (%d characters)\n", len([]rune(transcript)))

	p := eng.newPipeline(idx)
	p.SetObserver(printStage)

	run, err := p.Run(ctx, transcript)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	report := p.BuildReport(run, pipeline.ReportSources{
		Transcript: transcriptPath,
		Filing:     analyzeFlags.filing,
		Index:      idx.Info(),
		LLM:        eng.llmInfo(),
	})

	renderer := p.Renderer()
	if outJSON != "" {
		if err := renderer.RenderJSON(report, outJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(report, outMD); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", outMD)
	}

	renderer.RenderSummary(os.Stdout, report)
	return nil
}

// printStage is the progress indicator for a single run
func printStage(stage pipeline.Stage, claims int) {
	switch stage {
	case pipeline.StageExtractingClaims:
		fmt.Fprintf(os.Stderr, "⚙️  Extracting claims...\n")
	case pipeline.StageVerifyingClaims:
		fmt.Fprintf(os.Stderr, "✓ Extracted %d claims\n", claims)
		fmt.Fprintf(os.Stderr, "⚙️  Verifying claims against the filing...\n")
	case pipeline.StageDone:
		fmt.Fprintf(os.Stderr, "✓ Verified %d claims\n", claims)
	}
}
