package adjudicate

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ppiankov/alphasentinel/internal/extract"
	"github.com/ppiankov/alphasentinel/internal/model"
)

// Assessment is the parsed content of an adjudication response
type Assessment struct {
	Risk      model.RiskScore
	Stance    model.Stance
	Rationale string
}

type structuredVerdict struct {
	RiskScore json.RawMessage `json:"risk_score"`
	Stance    string          `json:"stance"`
	Verdict   string          `json:"verdict"`
	Rationale string          `json:"rationale"`
}

// ParseVerdict reads a structured JSON verdict when present, otherwise scans
// "Risk Score | Verdict" text. A missing or out-of-range score is unknown.
func ParseVerdict(response string) Assessment {
	if a, ok := parseStructured(response); ok {
		return a
	}

	text := strings.TrimSpace(response)
	rationale := text
	if i := strings.Index(text, "|"); i >= 0 {
		rationale = strings.TrimSpace(text[i+1:])
	}

	return Assessment{
		Risk:      ScanRiskScore(text),
		Stance:    InferStance(rationale),
		Rationale: rationale,
	}
}

func parseStructured(response string) (Assessment, bool) {
	cleaned := extract.CleanResponse(response)
	if !strings.HasPrefix(cleaned, "{") {
		return Assessment{}, false
	}

	var sv structuredVerdict
	if err := json.Unmarshal([]byte(cleaned), &sv); err != nil || len(sv.RiskScore) == 0 {
		return Assessment{}, false
	}

	rationale := strings.TrimSpace(sv.Verdict)
	if rationale == "" {
		rationale = strings.TrimSpace(sv.Rationale)
	}

	stance := normalizeStance(sv.Stance)
	if stance == model.StanceUnknown {
		stance = InferStance(rationale)
	}

	return Assessment{
		Risk:      riskFromJSON(sv.RiskScore),
		Stance:    stance,
		Rationale: rationale,
	}, true
}

func riskFromJSON(raw json.RawMessage) model.RiskScore {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f != math.Trunc(f) || f < model.MinRisk || f > model.MaxRisk {
			return model.UnknownRisk
		}
		return model.NewRiskScore(int(f))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ScanRiskScore(s)
	}
	return model.UnknownRisk
}

// numericToken matches a number as a model writes it: an optional sign or
// currency, digits, an optional fraction, percent or "/10" style denominator.
var numericToken = regexp.MustCompile(`^([-+$]?)(\d+)(\.\d+)?(%?)(/\d+)?$`)

// ScanRiskScore reads the first standalone numeric token as a risk score.
// Tokens split on whitespace and "|" and lose surrounding markup, so "**8**"
// and "8." read as 8 and "7/10" as 7. The first numeric token decides: a
// signed, currency, fractional or percent value, or an integer outside 1..10,
// is unknown rather than a later candidate.
func ScanRiskScore(text string) model.RiskScore {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == '|'
	})

	for _, tok := range tokens {
		tok = strings.TrimLeft(tok, "*_`\"'([{<:")
		tok = strings.TrimRight(tok, "*_`\"')]}>:;,.!?")

		m := numericToken.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		if m[1] != "" || m[3] != "" || m[4] != "" {
			return model.UnknownRisk
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return model.UnknownRisk
		}
		return model.NewRiskScore(n)
	}
	return model.UnknownRisk
}

// InferStance classifies free-text rationale by keyword
func InferStance(text string) model.Stance {
	lower := strings.ToLower(text)

	for _, kw := range []string{"contradict", "does not support", "doesn't support", "not supported", "unsupported", "inconsistent", "discrepan"} {
		if strings.Contains(lower, kw) {
			return model.StanceContradicts
		}
	}
	for _, kw := range []string{"risk context", "adds risk", "add risk", "additional risk", "risk factor", "cautionary", "caveat"} {
		if strings.Contains(lower, kw) {
			return model.StanceRiskContext
		}
	}
	for _, kw := range []string{"support", "consistent", "confirm", "corroborat"} {
		if strings.Contains(lower, kw) {
			return model.StanceSupports
		}
	}
	return model.StanceUnknown
}

func normalizeStance(s string) model.Stance {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, " ", "_"))) {
	case "supports", "support", "supported":
		return model.StanceSupports
	case "contradicts", "contradict", "contradicted":
		return model.StanceContradicts
	case "risk_context", "risk-context", "adds_risk_context":
		return model.StanceRiskContext
	}
	return model.StanceUnknown
}
