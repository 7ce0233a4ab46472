package model

import "time"

// Label is the trust verdict for a claim or a whole analysis
type Label string

const (
	LabelTrusted      Label = "trusted"
	LabelUntrusted    Label = "untrusted"
	LabelInsufficient Label = "insufficient"
)

// EvidenceGrade flags whether the overall label was reached decisively
type EvidenceGrade string

const (
	GradeA EvidenceGrade = "A"
	GradeB EvidenceGrade = "B"
)

// Recognition providers
const (
	ProviderUserText      = "user_text"
	ProviderUserConfirmed = "user_confirmed"
	ProviderFallbackNoLLM = "fallback_no_llm"
	ProviderLLMVision     = "llm_vision"
)

// DefaultLanguage is assumed when the recognizer cannot tell
const DefaultLanguage = "zh-CN"

// Input is one analysis request as handed over by the transport layer
type Input struct {
	Text              string   `json:"text,omitempty"`
	Image             []byte   `json:"-"`
	ImageMIME         string   `json:"image_mime,omitempty"`
	CleanTextOverride string   `json:"clean_text_override,omitempty"`
	ClaimOverrides    []string `json:"claim_overrides,omitempty"`
	// PrimaryClaimIndex selects the claim to promote to position 0; out-of-range is a no-op
	PrimaryClaimIndex int `json:"primary_claim_index,omitempty"`
}

// HasImage reports whether image bytes were supplied
func (in Input) HasImage() bool {
	return len(in.Image) > 0
}

// Recognition is the output of the text recognizer
type Recognition struct {
	RawText   string `json:"raw_text"`
	CleanText string `json:"clean_text"`
	Language  string `json:"language"`
	Provider  string `json:"recognition_provider"`
	Note      string `json:"recognition_note"`
}

// ClaimVerdict is the scored outcome for one claim
type ClaimVerdict struct {
	ClaimID string `json:"claim_id"`
	Label   Label  `json:"label"`
	Score   int    `json:"score"`
	Reason  string `json:"reason"`
}

// Verdict is the aggregated scoring outcome
type Verdict struct {
	Label         Label          `json:"label"`
	Score         int            `json:"score"`
	Reasons       []string       `json:"reasons"`
	RiskAlerts    []string       `json:"risk_alerts"`
	EvidenceGrade EvidenceGrade  `json:"evidence_grade"`
	PerClaim      []ClaimVerdict `json:"per_claim"`
}

// Explanation is the user-facing rendering of a verdict
type Explanation struct {
	LabelText        string   `json:"label_text"`
	Summary          string   `json:"summary"`
	PlainExplanation string   `json:"plain_explanation"`
	NextSteps        []string `json:"next_steps"`
	Disclaimer       string   `json:"disclaimer"`
}

// AnalysisResult is the complete, immutable outcome of one pipeline run
type AnalysisResult struct {
	RawText             string          `json:"raw_text"`
	CleanText           string          `json:"clean_text"`
	Language            string          `json:"language"`
	RecognitionProvider string          `json:"recognition_provider"`
	RecognitionNote     string          `json:"recognition_note"`
	Claims              []Claim         `json:"claims"`
	Label               Label           `json:"label"`
	Score               int             `json:"score"`
	Reasons             []string        `json:"reasons"`
	Evidences           []ClaimEvidence `json:"evidences"`
	RiskAlerts          []string        `json:"risk_alerts"`
	EvidenceGrade       EvidenceGrade   `json:"evidence_grade"`
	Summary             string          `json:"summary"`
	Explanation         string          `json:"explanation"`
	NextSteps           []string        `json:"next_steps"`
	Disclaimer          string          `json:"disclaimer"`
	AnalyzedAt          time.Time       `json:"analyzed_at"`
}

// Preview is the recognition plus extraction shown on the confirm screen
type Preview struct {
	Recognition
	Claims []Claim `json:"claims"`
}
