package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/alphasentinel/internal/model"
)

// Renderer writes reports as JSON, Markdown and a terminal summary
type Renderer struct {
	includeFooter  bool
	includeRawText bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter, includeRawText bool) *Renderer {
	return &Renderer{
		includeFooter:  includeFooter,
		includeRawText: includeRawText,
	}
}

// RenderJSON writes the report as indented JSON to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error {
		return r.WriteJSON(w, report)
	})
}

// WriteJSON encodes the report. Raw model output is stripped unless enabled.
func (r *Renderer) WriteJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.prepare(report)); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// RenderMarkdown writes the report as Markdown to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error {
		return r.WriteMarkdown(w, report)
	})
}

// WriteMarkdown renders the dashboard metrics followed by one section per claim
func (r *Renderer) WriteMarkdown(w io.Writer, report *model.Report) error {
	var b strings.Builder
	s := report.Summary

	fmt.Fprintf(&b, "# AlphaSentinel Report: %s\n\n", report.Subject)
	b.WriteString("> Risk scores are model judgments of the discrepancy between a claim and the filing. They are not findings of fact.\n\n")

	if report.Transcript != "" {
		fmt.Fprintf(&b, "- **Transcript:** %s\n", report.Transcript)
	}
	if report.Filing != "" {
		fmt.Fprintf(&b, "- **Filing:** %s\n", report.Filing)
	}
	fmt.Fprintf(&b, "- **Generated:** %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	if report.Run != nil && report.Run.ID != "" {
		fmt.Fprintf(&b, "- **Run:** `%s`\n", report.Run.ID)
	}
	b.WriteString("\n")

	b.WriteString("## Dashboard\n\n")
	b.WriteString("| Total Claims Analyzed | Risk Factors Found | Overall Trust Score |\n")
	b.WriteString("|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d High Risk | %s |\n\n", s.TotalClaims, s.HighRiskCount, FormatTrust(s.TrustScore))
	if s.ScoredClaims < s.TotalClaims {
		fmt.Fprintf(&b, "%d of %d claims were scored; the rest are excluded from the trust score.\n\n", s.ScoredClaims, s.TotalClaims)
	}

	b.WriteString("## Claims\n\n")
	verdicts := verdictsOf(report)
	if len(verdicts) == 0 {
		b.WriteString("No checkable claims were extracted from the transcript.\n\n")
	}
	for i, v := range verdicts {
		fmt.Fprintf(&b, "### Claim #%d\n\n", i+1)
		fmt.Fprintf(&b, "> \"%s\"\n\n", v.Claim.Text)
		if v.Claim.Source == model.ClaimSourceFallback {
			b.WriteString("_The model did not return a claim list; its whole response is shown as one claim._\n\n")
		}
		fmt.Fprintf(&b, "- **Risk Score:** %s\n", formatRisk(v.Risk))
		fmt.Fprintf(&b, "- **Stance:** %s\n", v.Stance)
		fmt.Fprintf(&b, "- **Verdict:** %s\n", v.Rationale)
		if v.NoEvidence {
			b.WriteString("- **Evidence:** none found in the filing\n\n")
			continue
		}
		if pages := evidencePages(v.Evidence); pages != "" {
			fmt.Fprintf(&b, "- **Evidence (10-K, %s):** ...%s\n\n", pages, v.EvidenceSnippet)
		} else {
			fmt.Fprintf(&b, "- **Evidence (10-K):** ...%s\n\n", v.EvidenceSnippet)
		}
	}

	if len(s.Signals) > 0 {
		b.WriteString("## Signals\n\n")
		for _, sig := range s.Signals {
			fmt.Fprintf(&b, "- **%s** (%s): %s", sig.Type, sig.Severity, sig.Description)
			if formula, ok := sig.Data["formula"].(string); ok {
				fmt.Fprintf(&b, " `%s`", formula)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Evidence Index\n\n")
	fmt.Fprintf(&b, "- **Ready:** %t\n", report.Index.Ready)
	fmt.Fprintf(&b, "- **Passages:** %d\n", report.Index.Passages)
	if report.Index.Dimension > 0 {
		fmt.Fprintf(&b, "- **Dimension:** %d\n", report.Index.Dimension)
	}
	fmt.Fprintf(&b, "- **Hybrid retrieval:** %t\n", report.Index.Hybrid)
	if report.LLM.Provider != "" {
		fmt.Fprintf(&b, "- **Generation:** %s\n", joinNonEmpty(report.LLM.Provider, report.LLM.Model))
	}
	if report.LLM.EmbeddingProvider != "" {
		fmt.Fprintf(&b, "- **Embeddings:** %s\n", joinNonEmpty(report.LLM.EmbeddingProvider, report.LLM.EmbeddingModel))
	}

	if r.includeFooter {
		b.WriteString("\n---\n\n")
		b.WriteString("_Generated by AlphaSentinel. Scores come from a language model comparing each claim with retrieved filing passages; verify before acting on them._\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderSummary prints the final report as CLAIM / VERDICT blocks
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	fmt.Fprintf(w, "\n====== FINAL REPORT ======\n")
	for _, v := range verdictsOf(report) {
		fmt.Fprintf(w, "\nCLAIM: %s\n", v.Claim.Text)
		fmt.Fprintf(w, "VERDICT: %s | %s\n", v.Risk, v.Rationale)
		fmt.Fprintln(w, strings.Repeat("-", 60))
	}

	s := report.Summary
	fmt.Fprintf(w, "\nTotal Claims Analyzed: %d\n", s.TotalClaims)
	fmt.Fprintf(w, "Risk Factors Found:    %d High Risk\n", s.HighRiskCount)
	fmt.Fprintf(w, "Overall Trust Score:   %s\n", FormatTrust(s.TrustScore))
}

// FormatTrust formats a trust score as "x.x/10"
func FormatTrust(trust float64) string {
	return fmt.Sprintf("%.1f/10", trust)
}

// prepare returns the report to encode, without raw model output unless enabled
func (r *Renderer) prepare(report *model.Report) *model.Report {
	if r.includeRawText || report == nil || report.Run == nil {
		return report
	}

	run := *report.Run
	run.Verdicts = make([]model.Verdict, len(report.Run.Verdicts))
	for i, v := range report.Run.Verdicts {
		v.Raw = ""
		run.Verdicts[i] = v
	}

	out := *report
	out.Run = &run
	return &out
}

func verdictsOf(report *model.Report) []model.Verdict {
	if report == nil || report.Run == nil {
		return nil
	}
	return report.Run.Verdicts
}

func formatRisk(risk model.RiskScore) string {
	if !risk.Known {
		return "unknown"
	}
	return fmt.Sprintf("%d/10", risk.Value)
}

// evidencePages lists the distinct pages of the evidence, e.g. "p. 3, 7"
func evidencePages(hits []model.ScoredPassage) string {
	seen := make(map[int]bool)
	var pages []int
	for _, h := range hits {
		if h.Passage.Page > 0 && !seen[h.Passage.Page] {
			seen[h.Passage.Page] = true
			pages = append(pages, h.Passage.Page)
		}
	}
	if len(pages) == 0 {
		return ""
	}
	sort.Ints(pages)

	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return "p. " + strings.Join(parts, ", ")
}

func joinNonEmpty(provider, name string) string {
	if name == "" {
		return provider
	}
	return provider + "/" + name
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return write(f)
}
