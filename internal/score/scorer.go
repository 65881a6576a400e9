package score

import (
	"fmt"

	"github.com/ppiankov/alphasentinel/internal/model"
)

// DefaultHighRiskThreshold is the score above which a claim counts as high risk
const DefaultHighRiskThreshold = 5

// Scorer aggregates verdicts into a report summary
type Scorer struct {
	highRiskThreshold int
}

// NewScorer creates a scorer. A threshold outside the risk range uses the default.
func NewScorer(highRiskThreshold int) *Scorer {
	if highRiskThreshold < model.MinRisk || highRiskThreshold > model.MaxRisk {
		highRiskThreshold = DefaultHighRiskThreshold
	}
	return &Scorer{highRiskThreshold: highRiskThreshold}
}

// Summarize aggregates verdicts with the default threshold
func Summarize(verdicts []model.Verdict) model.Summary {
	return NewScorer(DefaultHighRiskThreshold).Calculate(verdicts)
}

// Calculate computes the summary. The result does not depend on verdict order.
// Unknown scores count toward TotalClaims only.
func (s *Scorer) Calculate(verdicts []model.Verdict) model.Summary {
	summary := model.Summary{
		TotalClaims: len(verdicts),
		TrustScore:  float64(model.MaxRisk),
	}

	sum := 0
	noEvidence := 0
	for _, v := range verdicts {
		if v.NoEvidence {
			noEvidence++
		}
		if !v.Risk.Known {
			continue
		}
		summary.ScoredClaims++
		sum += v.Risk.Value
		if v.Risk.Value > s.highRiskThreshold {
			summary.HighRiskCount++
		}
	}

	if summary.ScoredClaims > 0 {
		// Integer sum keeps the mean exact regardless of order
		summary.AverageRisk = float64(sum) / float64(summary.ScoredClaims)
		summary.TrustScore = float64(model.MaxRisk) - summary.AverageRisk
	}

	summary.Signals = s.signals(summary, noEvidence)
	return summary
}

func (s *Scorer) signals(summary model.Summary, noEvidence int) []model.Signal {
	if summary.TotalClaims == 0 {
		return nil
	}

	var signals []model.Signal

	if summary.HighRiskCount > 0 {
		severity := model.SeverityWarning
		if summary.HighRiskCount*2 > summary.TotalClaims {
			severity = model.SeverityCritical
		}
		signals = append(signals, model.Signal{
			Type:        model.SignalHighRisk,
			Severity:    severity,
			Description: fmt.Sprintf("%d of %d claims scored above %d", summary.HighRiskCount, summary.TotalClaims, s.highRiskThreshold),
			Data: map[string]interface{}{
				"high_risk_count": summary.HighRiskCount,
				"total_claims":    summary.TotalClaims,
				"threshold":       s.highRiskThreshold,
				"formula":         "count(known risk > threshold)",
			},
		})
	}

	if unscored := summary.TotalClaims - summary.ScoredClaims; unscored > 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalUnscoredClaims,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("%d claims have no usable risk score and are excluded from the average", unscored),
			Data: map[string]interface{}{
				"unscored":      unscored,
				"scored_claims": summary.ScoredClaims,
				"formula":       "total_claims - scored_claims",
			},
		})
	}

	if noEvidence > 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalNoEvidence,
			Severity:    model.SeverityInfo,
			Description: fmt.Sprintf("%d claims had no supporting passages in the reference document", noEvidence),
			Data: map[string]interface{}{
				"no_evidence":  noEvidence,
				"total_claims": summary.TotalClaims,
				"formula":      "count(retrieved passages == 0)",
			},
		})
	}

	signals = append(signals, model.Signal{
		Type:        model.SignalTrust,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("Trust score %.1f/10 from %d scored claims", summary.TrustScore, summary.ScoredClaims),
		Data: map[string]interface{}{
			"average_risk": summary.AverageRisk,
			"trust_score":  summary.TrustScore,
			"formula":      "10 - mean(known risk scores)",
		},
	})

	return signals
}
