package model

import (
	"strings"
	"testing"
)

const validAnalysisJSON = `{
	"clauses": [
		{
			"type": "liability",
			"originalText": "Party A shall be liable for all damages without limit.",
			"riskLevel": "high",
			"plainLanguageExplanation": "You could owe unlimited money if something goes wrong.",
			"riskReasons": ["Unlimited liability", "No cap specified"],
			"isOverride": false,
			"overrideJustification": null
		},
		{
			"type": "payment",
			"originalText": "Invoices are due within 30 days of receipt.",
			"riskLevel": "low",
			"plainLanguageExplanation": "You have a month to pay each invoice.",
			"riskReasons": ["Net 30 terms"],
			"isOverride": false,
			"overrideJustification": null
		}
	],
	"overallRiskLevel": "high",
	"summary": "A services agreement with an uncapped liability clause."
}`

func TestParseAnalysisResult(t *testing.T) {
	result, err := ParseAnalysisResult(validAnalysisJSON)
	if err != nil {
		t.Fatalf("ParseAnalysisResult() error = %v", err)
	}

	if len(result.Clauses) != 2 {
		t.Fatalf("clauses = %d, want 2", len(result.Clauses))
	}
	if result.Clauses[0].Type != ClauseLiability {
		t.Errorf("clause type = %q, want liability", result.Clauses[0].Type)
	}
	if result.OverallRiskLevel != RiskHigh {
		t.Errorf("overall risk = %q, want high", result.OverallRiskLevel)
	}
	if len(result.Clauses[0].RiskReasons) != 2 {
		t.Errorf("risk reasons = %d, want 2", len(result.Clauses[0].RiskReasons))
	}
}

func TestParseAnalysisResultLeadingWhitespace(t *testing.T) {
	if _, err := ParseAnalysisResult("\n  " + validAnalysisJSON + "\n"); err != nil {
		t.Errorf("ParseAnalysisResult() error = %v, surrounding whitespace should be tolerated", err)
	}
}

func TestParseAnalysisResultInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "I'm sorry, I cannot analyze this contract."},
		{"markdown fenced", "```json\n{\"clauses\": []}\n```"},
		{"unknown overall risk", `{"clauses": [], "overallRiskLevel": "severe", "summary": "x"}`},
		{"empty summary", `{"clauses": [], "overallRiskLevel": "low", "summary": "  "}`},
		{
			"unknown clause type",
			`{"clauses": [{"type": "warranty", "originalText": "x", "riskLevel": "low", "plainLanguageExplanation": "x", "riskReasons": [], "isOverride": false}], "overallRiskLevel": "low", "summary": "x"}`,
		},
		{
			"unknown clause risk",
			`{"clauses": [{"type": "liability", "originalText": "x", "riskLevel": "extreme", "plainLanguageExplanation": "x", "riskReasons": [], "isOverride": false}], "overallRiskLevel": "low", "summary": "x"}`,
		},
		{
			"empty original text",
			`{"clauses": [{"type": "liability", "originalText": " ", "riskLevel": "low", "plainLanguageExplanation": "x", "riskReasons": [], "isOverride": false}], "overallRiskLevel": "low", "summary": "x"}`,
		},
		{
			"overall below highest clause risk",
			`{"clauses": [{"type": "liability", "originalText": "x", "riskLevel": "high", "plainLanguageExplanation": "x", "riskReasons": [], "isOverride": false}], "overallRiskLevel": "low", "summary": "x"}`,
		},
		{
			"overall above highest clause risk",
			`{"clauses": [{"type": "payment", "originalText": "x", "riskLevel": "low", "plainLanguageExplanation": "x", "riskReasons": [], "isOverride": false}], "overallRiskLevel": "high", "summary": "x"}`,
		},
		{
			"override without justification",
			`{"clauses": [{"type": "liability", "originalText": "x", "riskLevel": "low", "plainLanguageExplanation": "x", "riskReasons": [], "isOverride": true, "overrideJustification": null}], "overallRiskLevel": "low", "summary": "x"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAnalysisResult(tt.raw); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseAnalysisResultNoClauses(t *testing.T) {
	// No clauses found is a valid outcome; the roll-up check only applies
	// when there are clauses to roll up.
	raw := `{"clauses": [], "overallRiskLevel": "low", "summary": "No notable clauses detected."}`
	if _, err := ParseAnalysisResult(raw); err != nil {
		t.Errorf("ParseAnalysisResult() error = %v", err)
	}
}

func TestParseAnalysisResultOverrideWithJustification(t *testing.T) {
	raw := `{"clauses": [{"type": "confidentiality", "originalText": "x", "riskLevel": "medium", "plainLanguageExplanation": "x", "riskReasons": [], "isOverride": true, "overrideJustification": "unusual carve-out"}], "overallRiskLevel": "medium", "summary": "x"}`
	result, err := ParseAnalysisResult(raw)
	if err != nil {
		t.Fatalf("ParseAnalysisResult() error = %v", err)
	}
	if !result.Clauses[0].IsOverride {
		t.Error("isOverride should survive parsing")
	}
	if result.Clauses[0].OverrideJustification == nil || !strings.Contains(*result.Clauses[0].OverrideJustification, "carve-out") {
		t.Error("override justification lost")
	}
}

func TestMaxRiskLevel(t *testing.T) {
	tests := []struct {
		name   string
		levels []RiskLevel
		want   RiskLevel
	}{
		{"empty defaults to low", nil, RiskLow},
		{"all low", []RiskLevel{RiskLow, RiskLow}, RiskLow},
		{"medium beats low", []RiskLevel{RiskLow, RiskMedium, RiskLow}, RiskMedium},
		{"high beats everything", []RiskLevel{RiskMedium, RiskHigh, RiskLow}, RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxRiskLevel(tt.levels); got != tt.want {
				t.Errorf("MaxRiskLevel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidClauseType(t *testing.T) {
	for _, valid := range []ClauseType{ClauseLiability, ClauseTermination, ClauseConfidentiality, ClausePayment} {
		if !ValidClauseType(valid) {
			t.Errorf("ValidClauseType(%q) = false, want true", valid)
		}
	}
	if ValidClauseType("warranty") {
		t.Error("ValidClauseType(warranty) = true, want false")
	}
}

func TestFileTypeFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want FileType
		ok   bool
	}{
		{".pdf", FileTypePDF, true},
		{".docx", FileTypeDOCX, true},
		{".txt", FileTypeTXT, true},
		{".doc", "", false},
		{".exe", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := FileTypeFromExtension(tt.ext)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FileTypeFromExtension(%q) = (%q, %v), want (%q, %v)", tt.ext, got, ok, tt.want, tt.ok)
		}
	}
}
