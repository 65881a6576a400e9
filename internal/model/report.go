package model

import "time"

// RunResult is the outcome of one pipeline run. Verdicts[i] adjudicates Claims[i].
type RunResult struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Claims      []Claim   `json:"claims"`
	Verdicts    []Verdict `json:"verdicts"`
}

// Summary holds the aggregate statistics over a verdict list
type Summary struct {
	TotalClaims   int      `json:"total_claims"`
	ScoredClaims  int      `json:"scored_claims"` // Verdicts with a known risk score
	HighRiskCount int      `json:"high_risk_count"`
	AverageRisk   float64  `json:"average_risk"`
	TrustScore    float64  `json:"trust_score"` // 10 - AverageRisk
	Signals       []Signal `json:"signals,omitempty"`
}

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Formula and inputs
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalHighRisk       SignalType = "high_risk"       // Claims scored above the threshold
	SignalUnscoredClaims SignalType = "unscored_claims" // Verdicts without a usable score
	SignalNoEvidence     SignalType = "no_evidence"     // Claims with nothing retrieved
	SignalTrust          SignalType = "trust"           // How the trust score was derived
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// Report is the rendered artifact of an analysis
type Report struct {
	Subject     string     `json:"subject"`
	Transcript  string     `json:"transcript_source"`
	Filing      string     `json:"filing_source"`
	GeneratedAt time.Time  `json:"generated_at"`
	Run         *RunResult `json:"run"`
	Summary     Summary    `json:"summary"`
	Index       IndexInfo  `json:"index"`
	LLM         LLMInfo    `json:"llm"`
	Principles  Principles `json:"principles"`
}

// IndexInfo describes the evidence index used for a report
type IndexInfo struct {
	Ready     bool `json:"ready"`
	Passages  int  `json:"passages"`
	Dimension int  `json:"dimension,omitempty"`
	Hybrid    bool `json:"hybrid"`
}

// LLMInfo records the capabilities behind a report
type LLMInfo struct {
	Provider          string `json:"provider"`
	Model             string `json:"model,omitempty"`
	EmbeddingProvider string `json:"embedding_provider"`
	EmbeddingModel    string `json:"embedding_model,omitempty"`
}

// Principles documents how the report should be read
type Principles struct {
	ModelDerived bool `json:"model_derived"` // Scores are model judgments, not ground truth
	Transparent  bool `json:"transparent"`   // Evidence and formulas are included
}

// DefaultPrinciples returns the standard principles
func DefaultPrinciples() Principles {
	return Principles{
		ModelDerived: true,
		Transparent:  true,
	}
}
