package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	MinRisk = 1  // Fully supported
	MaxRisk = 10 // High discrepancy
)

// RiskScore is either a known integer in [MinRisk, MaxRisk] or unknown.
// Unknown scores are excluded from aggregates, never read as zero.
type RiskScore struct {
	Value int
	Known bool
}

// UnknownRisk is the score of a verdict the model did not score
var UnknownRisk = RiskScore{}

// NewRiskScore returns a known score, or UnknownRisk when v is out of range
func NewRiskScore(v int) RiskScore {
	if v < MinRisk || v > MaxRisk {
		return UnknownRisk
	}
	return RiskScore{Value: v, Known: true}
}

func (r RiskScore) String() string {
	if !r.Known {
		return "unknown"
	}
	return strconv.Itoa(r.Value)
}

// MarshalJSON encodes known scores as integers and unknown as "unknown"
func (r RiskScore) MarshalJSON() ([]byte, error) {
	if !r.Known {
		return []byte(`"unknown"`), nil
	}
	return []byte(strconv.Itoa(r.Value)), nil
}

// UnmarshalJSON accepts an integer or the string "unknown"
func (r *RiskScore) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*r = NewRiskScore(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("risk score: %w", err)
	}
	if s != "unknown" {
		return fmt.Errorf("risk score: unexpected value %q", s)
	}
	*r = UnknownRisk
	return nil
}

// Stance classifies how the evidence relates to the claim
type Stance string

const (
	StanceSupports    Stance = "supports"
	StanceContradicts Stance = "contradicts"
	StanceRiskContext Stance = "risk_context"
	StanceUnknown     Stance = "unknown"
)

// Verdict is the adjudication of one claim
type Verdict struct {
	Claim           Claim           `json:"claim"`
	EvidenceSnippet string          `json:"evidence_snippet"`   // Display excerpt only
	Evidence        []ScoredPassage `json:"evidence,omitempty"` // Passages used for scoring
	Risk            RiskScore       `json:"risk_score"`
	Stance          Stance          `json:"stance"`
	Rationale       string          `json:"rationale"`
	NoEvidence      bool            `json:"no_evidence"`   // Index had nothing to offer
	Raw             string          `json:"raw,omitempty"` // Unparsed model response
}
