package model

// Claim represents a checkable assertion extracted from the transcript
type Claim struct {
	Text   string      `json:"text"`             // The claim text itself
	Index  int         `json:"index"`            // Position in the extracted list (0-based)
	Source ClaimSource `json:"source,omitempty"` // How the claim was recovered from the model output
}

// ClaimSource records which parsing path produced a claim
type ClaimSource string

const (
	ClaimSourceParsed   ClaimSource = "parsed"   // Parsed from a list structure
	ClaimSourceFallback ClaimSource = "fallback" // Whole cleaned response taken as one claim
)
