package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// FileType is the declared type of an uploaded document.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeTXT  FileType = "txt"
)

// RiskLevel is assigned per clause and rolled up per contract.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ClauseType is the fixed category set the model classifies excerpts into.
type ClauseType string

const (
	ClauseLiability       ClauseType = "liability"
	ClauseTermination     ClauseType = "termination"
	ClauseConfidentiality ClauseType = "confidentiality"
	ClausePayment         ClauseType = "payment"
)

// Chat message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Contract is an uploaded document with its extracted text.
type Contract struct {
	ID            string        `gorm:"primaryKey" json:"id"`
	Filename      string        `json:"filename"` // generated stored name
	OriginalName  string        `json:"originalName"`
	FileType      string        `json:"fileType"`
	FileSize      int64         `json:"fileSize"`
	FilePath      string        `json:"-"`
	ExtractedText string        `gorm:"type:text" json:"extractedText"`
	CreatedAt     time.Time     `json:"createdAt"`
	Analysis      *Analysis     `gorm:"constraint:OnDelete:CASCADE" json:"analysis,omitempty"`
	ChatMessages  []ChatMessage `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Analysis is the structured model output for one contract. Created once,
// never updated.
type Analysis struct {
	ID               string         `gorm:"primaryKey" json:"id"`
	ContractID       string         `gorm:"uniqueIndex" json:"-"`
	OverallRiskLevel string         `json:"overallRiskLevel"`
	Summary          string         `gorm:"type:text" json:"summary"`
	RawResponse      datatypes.JSON `json:"-"`
	CreatedAt        time.Time      `json:"createdAt"`
	Clauses          []Clause       `gorm:"constraint:OnDelete:CASCADE" json:"clauses"`
}

// Clause is one detected clause of an analysis. Immutable after creation;
// row order follows the model's output order.
type Clause struct {
	ID                       string         `gorm:"primaryKey" json:"id"`
	AnalysisID               string         `gorm:"index" json:"-"`
	Type                     string         `json:"type"`
	OriginalText             string         `gorm:"type:text" json:"originalText"`
	RiskLevel                string         `json:"riskLevel"`
	PlainLanguageExplanation string         `gorm:"type:text" json:"plainLanguageExplanation"`
	RiskReasons              datatypes.JSON `json:"-"`
	IsOverride               bool           `json:"isOverride"`
	OverrideJustification    *string        `json:"overrideJustification"`
	Position                 int            `json:"-"`
	CreatedAt                time.Time      `json:"-"`
}

// ChatMessage is one turn of the per-contract Q&A chat. Append-only.
type ChatMessage struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	ContractID    string    `gorm:"index" json:"-"`
	Role          string    `json:"role"`
	Content       string    `gorm:"type:text" json:"content"`
	ClauseContext *string   `json:"clauseContext"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (c *Contract) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (a *Analysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (cl *Clause) BeforeCreate(tx *gorm.DB) error {
	if cl.ID == "" {
		cl.ID = uuid.NewString()
	}
	return nil
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// MaxRiskLevel returns the highest severity among the given levels.
func MaxRiskLevel(levels []RiskLevel) RiskLevel {
	highest := RiskLow
	for _, l := range levels {
		if riskRank(l) > riskRank(highest) {
			highest = l
		}
	}
	return highest
}

func riskRank(l RiskLevel) int {
	switch l {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	default:
		return 1
	}
}

// ValidRiskLevel reports whether l is one of the enumerated levels.
func ValidRiskLevel(l RiskLevel) bool {
	return l == RiskLow || l == RiskMedium || l == RiskHigh
}

// ValidClauseType reports whether t is one of the enumerated categories.
func ValidClauseType(t ClauseType) bool {
	switch t {
	case ClauseLiability, ClauseTermination, ClauseConfidentiality, ClausePayment:
		return true
	}
	return false
}

// FileTypeFromExtension maps a lowercased filename extension (with dot) to a
// supported file type. Returns false for anything outside the allowed set.
func FileTypeFromExtension(ext string) (FileType, bool) {
	switch ext {
	case ".pdf":
		return FileTypePDF, true
	case ".docx":
		return FileTypeDOCX, true
	case ".txt":
		return FileTypeTXT, true
	}
	return "", false
}

// InitDB opens the sqlite database and migrates the schema. Foreign key
// enforcement goes in the DSN because the pragma is per-connection; every
// connection the pool opens must have it or contract deletes stop cascading.
func InitDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Contract{}, &Analysis{}, &Clause{}, &ChatMessage{}); err != nil {
		return nil, err
	}

	return db, nil
}
