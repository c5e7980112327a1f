package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ClauseResult is one clause as returned by the generation backend.
type ClauseResult struct {
	Type                     ClauseType `json:"type"`
	OriginalText             string     `json:"originalText"`
	RiskLevel                RiskLevel  `json:"riskLevel"`
	PlainLanguageExplanation string     `json:"plainLanguageExplanation"`
	RiskReasons              []string   `json:"riskReasons"`
	IsOverride               bool       `json:"isOverride"`
	OverrideJustification    *string    `json:"overrideJustification"`
}

// AnalysisResult is the full structured reply expected from the analysis call.
type AnalysisResult struct {
	Clauses          []ClauseResult `json:"clauses"`
	OverallRiskLevel RiskLevel      `json:"overallRiskLevel"`
	Summary          string         `json:"summary"`
}

// ParseAnalysisResult parses a model reply and validates it field by field.
// Valid JSON with an invalid schema is rejected the same way as a parse
// failure, since the reply comes from an uncontrolled text generator.
func ParseAnalysisResult(raw string) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &result); err != nil {
		return nil, fmt.Errorf("invalid analysis JSON: %w", err)
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis schema: %w", err)
	}
	return &result, nil
}

// Validate checks the enumerations and required fields of the parsed reply.
func (r *AnalysisResult) Validate() error {
	if !ValidRiskLevel(r.OverallRiskLevel) {
		return fmt.Errorf("unknown overall risk level %q", r.OverallRiskLevel)
	}
	if strings.TrimSpace(r.Summary) == "" {
		return fmt.Errorf("summary is empty")
	}
	for i, cl := range r.Clauses {
		if !ValidClauseType(cl.Type) {
			return fmt.Errorf("clause %d: unknown type %q", i, cl.Type)
		}
		if !ValidRiskLevel(cl.RiskLevel) {
			return fmt.Errorf("clause %d: unknown risk level %q", i, cl.RiskLevel)
		}
		if strings.TrimSpace(cl.OriginalText) == "" {
			return fmt.Errorf("clause %d: originalText is empty", i)
		}
		if strings.TrimSpace(cl.PlainLanguageExplanation) == "" {
			return fmt.Errorf("clause %d: plainLanguageExplanation is empty", i)
		}
		if cl.IsOverride && (cl.OverrideJustification == nil || strings.TrimSpace(*cl.OverrideJustification) == "") {
			return fmt.Errorf("clause %d: override without justification", i)
		}
	}
	// The overall rating must roll up from the clauses, not be invented
	if len(r.Clauses) > 0 {
		if want := MaxRiskLevel(r.RiskLevels()); r.OverallRiskLevel != want {
			return fmt.Errorf("overall risk level %q does not match highest clause risk %q", r.OverallRiskLevel, want)
		}
	}
	return nil
}

// RiskLevels returns the per-clause levels, for rolling up the overall rating.
func (r *AnalysisResult) RiskLevels() []RiskLevel {
	levels := make([]RiskLevel, 0, len(r.Clauses))
	for _, cl := range r.Clauses {
		levels = append(levels, cl.RiskLevel)
	}
	return levels
}
