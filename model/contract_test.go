package model

import (
	"path/filepath"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}
	return db
}

func TestInitDBMigratesSchema(t *testing.T) {
	db := testDB(t)

	for _, table := range []string{"contracts", "analyses", "clauses", "chat_messages"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("table %q missing after migration", table)
		}
	}
}

func TestContractIDGenerated(t *testing.T) {
	db := testDB(t)

	contract := &Contract{
		Filename:      "abc.txt",
		OriginalName:  "nda.txt",
		FileType:      string(FileTypeTXT),
		FileSize:      42,
		ExtractedText: "This agreement...",
	}
	if err := db.Create(contract).Error; err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if contract.ID == "" {
		t.Error("ID should be generated on create")
	}
	if contract.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set on create")
	}
}

func TestContractDeleteCascades(t *testing.T) {
	db := testDB(t)

	contract := &Contract{
		Filename:      "abc.pdf",
		OriginalName:  "msa.pdf",
		FileType:      string(FileTypePDF),
		ExtractedText: "text",
	}
	if err := db.Create(contract).Error; err != nil {
		t.Fatalf("create contract: %v", err)
	}

	analysis := &Analysis{
		ContractID:       contract.ID,
		OverallRiskLevel: string(RiskHigh),
		Summary:          "risky",
		RawResponse:      datatypes.JSON(`{}`),
		Clauses: []Clause{
			{Type: string(ClauseLiability), OriginalText: "a", RiskLevel: string(RiskHigh), PlainLanguageExplanation: "x", Position: 0},
			{Type: string(ClausePayment), OriginalText: "b", RiskLevel: string(RiskLow), PlainLanguageExplanation: "y", Position: 1},
		},
	}
	if err := db.Create(analysis).Error; err != nil {
		t.Fatalf("create analysis: %v", err)
	}

	msg := &ChatMessage{ContractID: contract.ID, Role: RoleUser, Content: "hi"}
	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("create chat message: %v", err)
	}

	if err := db.Delete(&Contract{}, "id = ?", contract.ID).Error; err != nil {
		t.Fatalf("delete contract: %v", err)
	}

	var count int64
	db.Model(&Analysis{}).Where("contract_id = ?", contract.ID).Count(&count)
	if count != 0 {
		t.Errorf("analyses remaining = %d, want 0", count)
	}
	db.Model(&Clause{}).Where("analysis_id = ?", analysis.ID).Count(&count)
	if count != 0 {
		t.Errorf("clauses remaining = %d, want 0", count)
	}
	db.Model(&ChatMessage{}).Where("contract_id = ?", contract.ID).Count(&count)
	if count != 0 {
		t.Errorf("chat messages remaining = %d, want 0", count)
	}
}

func TestContractDeleteCascadesOnFreshConnection(t *testing.T) {
	db := testDB(t)

	contract := &Contract{Filename: "a.txt", OriginalName: "a.txt", FileType: string(FileTypeTXT), ExtractedText: "t"}
	if err := db.Create(contract).Error; err != nil {
		t.Fatalf("create contract: %v", err)
	}
	analysis := &Analysis{
		ContractID:       contract.ID,
		OverallRiskLevel: string(RiskLow),
		Summary:          "s",
		Clauses:          []Clause{{Type: string(ClauseLiability), OriginalText: "a", RiskLevel: string(RiskLow), PlainLanguageExplanation: "x"}},
	}
	if err := db.Create(analysis).Error; err != nil {
		t.Fatalf("create analysis: %v", err)
	}
	if err := db.Create(&ChatMessage{ContractID: contract.ID, Role: RoleUser, Content: "hi"}).Error; err != nil {
		t.Fatalf("create chat message: %v", err)
	}

	// Drop every pooled connection so the delete runs on a fresh one.
	// Enforcement must come from the DSN, not from whichever connection
	// happened to run a setup statement.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() error = %v", err)
	}
	sqlDB.SetMaxIdleConns(0)
	sqlDB.SetMaxIdleConns(2)

	if err := db.Delete(&Contract{}, "id = ?", contract.ID).Error; err != nil {
		t.Fatalf("delete contract: %v", err)
	}

	var count int64
	db.Model(&Analysis{}).Where("contract_id = ?", contract.ID).Count(&count)
	if count != 0 {
		t.Errorf("analyses remaining = %d, want 0", count)
	}
	db.Model(&Clause{}).Where("analysis_id = ?", analysis.ID).Count(&count)
	if count != 0 {
		t.Errorf("clauses remaining = %d, want 0", count)
	}
	db.Model(&ChatMessage{}).Where("contract_id = ?", contract.ID).Count(&count)
	if count != 0 {
		t.Errorf("chat messages remaining = %d, want 0", count)
	}
}

func TestAnalysisUniquePerContract(t *testing.T) {
	db := testDB(t)

	contract := &Contract{Filename: "a.txt", OriginalName: "a.txt", FileType: string(FileTypeTXT), ExtractedText: "t"}
	if err := db.Create(contract).Error; err != nil {
		t.Fatalf("create contract: %v", err)
	}

	first := &Analysis{ContractID: contract.ID, OverallRiskLevel: string(RiskLow), Summary: "s"}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("create first analysis: %v", err)
	}

	second := &Analysis{ContractID: contract.ID, OverallRiskLevel: string(RiskLow), Summary: "s"}
	if err := db.Create(second).Error; err == nil {
		t.Error("second analysis for same contract should violate unique index")
	}
}
