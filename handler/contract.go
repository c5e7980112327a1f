package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/clauselens/backend/config"
	"github.com/clauselens/backend/model"
	"github.com/clauselens/backend/pkg/logger"
	"github.com/clauselens/backend/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var contentTypes = map[model.FileType]string{
	model.FileTypePDF:  "application/pdf",
	model.FileTypeDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	model.FileTypeTXT:  "text/plain",
}

type ContractHandler struct {
	store     *service.ContractStore
	files     service.FileStore
	generator service.Generator
	cfg       *config.Config
}

func NewContractHandler(store *service.ContractStore, files service.FileStore, generator service.Generator, cfg *config.Config) *ContractHandler {
	return &ContractHandler{
		store:     store,
		files:     files,
		generator: generator,
		cfg:       cfg,
	}
}

// Upload handles contract upload and synchronous analysis. Nothing is
// persisted unless the full extract-analyze-persist sequence succeeds.
func (h *ContractHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	if header.Size > h.cfg.MaxFileSizeBytes() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("File must be under %dMB", h.cfg.Upload.MaxFileSizeMB)})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	fileType, ok := model.FileTypeFromExtension(ext)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF, DOCX, and TXT files are supported"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	// Extraction happens before any persistence; a failure here leaves no
	// file on disk and no contract row.
	result, err := service.ExtractDocument(data, fileType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if strings.TrimSpace(result.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File appears to be empty"})
		return
	}

	// Advisory only, never blocking
	warnings := []string{}
	if service.DetectNonEnglish(result.Text) {
		warnings = append(warnings, "Best results with English documents")
	}
	if service.IsVeryLongDocument(result.Text, result.PageCount) {
		warnings = append(warnings, "Large document - analysis may take longer")
	}

	storedName := uuid.New().String() + ext
	location, err := h.files.Save(ctx, storedName, data, contentTypes[fileType])
	if err != nil {
		logger.Error(ctx, "failed to store uploaded file", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed. Please try again."})
		return
	}

	contract := &model.Contract{
		Filename:      storedName,
		OriginalName:  header.Filename,
		FileType:      string(fileType),
		FileSize:      header.Size,
		FilePath:      location,
		ExtractedText: result.Text,
	}
	if err := h.store.Create(ctx, contract); err != nil {
		logger.Error(ctx, "failed to create contract", "error", err)
		h.cleanupFile(ctx, location)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed. Please try again."})
		return
	}

	analysisResult, rawReply, err := h.analyze(ctx, result.Text)
	if err != nil {
		logger.Warn(ctx, "analysis failed, rolling back contract",
			"contract_id", contract.ID,
			"error", err,
		)
		h.rollbackContract(ctx, contract)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis service unavailable. Please try again."})
		return
	}

	analysis := buildAnalysis(contract.ID, analysisResult, rawReply)
	if err := h.store.CreateAnalysis(ctx, analysis); err != nil {
		logger.Error(ctx, "failed to persist analysis", "contract_id", contract.ID, "error", err)
		h.rollbackContract(ctx, contract)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed. Please try again."})
		return
	}

	logger.Info(ctx, "contract analyzed",
		"contract_id", contract.ID,
		"clauses", len(analysis.Clauses),
		"overall_risk", analysis.OverallRiskLevel,
	)

	c.JSON(http.StatusOK, gin.H{
		"contract": gin.H{
			"id":           contract.ID,
			"filename":     contract.Filename,
			"originalName": contract.OriginalName,
			"createdAt":    contract.CreatedAt.Format(time.RFC3339),
		},
		"analysis": gin.H{
			"overallRiskLevel": analysis.OverallRiskLevel,
			"summary":          analysis.Summary,
			"clauses":          clausesJSON(analysis.Clauses),
		},
		"warnings": warnings,
	})
}

// analyze runs the generation call and parses the structured reply, allowing
// exactly one retry with an appended JSON-only demand when the first reply
// fails to parse or validate.
func (h *ContractHandler) analyze(ctx context.Context, text string) (*model.AnalysisResult, string, error) {
	prompt := service.BuildAnalysisPrompt(text)

	reply, err := h.generator.Generate(ctx, "", []service.ChatTurn{{Role: model.RoleUser, Content: prompt}}, h.cfg.LLM.AnalysisMaxTokens)
	if err != nil {
		return nil, "", err
	}

	result, parseErr := model.ParseAnalysisResult(reply)
	if parseErr == nil {
		return result, reply, nil
	}

	logger.Warn(ctx, "analysis reply failed to parse, retrying once", "error", parseErr)

	reply, err = h.generator.Generate(ctx, "", []service.ChatTurn{{Role: model.RoleUser, Content: prompt + service.AnalysisRetrySuffix}}, h.cfg.LLM.AnalysisMaxTokens)
	if err != nil {
		return nil, "", err
	}

	result, parseErr = model.ParseAnalysisResult(reply)
	if parseErr != nil {
		return nil, "", parseErr
	}
	return result, reply, nil
}

// rollbackContract undoes the partial upload after a failed analysis, so no
// contract ever persists without its analysis. Cleanup failures are logged
// and swallowed.
func (h *ContractHandler) rollbackContract(ctx context.Context, contract *model.Contract) {
	h.cleanupFile(ctx, contract.FilePath)
	if err := h.store.Delete(ctx, contract.ID); err != nil {
		logger.Warn(ctx, "failed to delete contract during rollback", "contract_id", contract.ID, "error", err)
	}
}

func (h *ContractHandler) cleanupFile(ctx context.Context, location string) {
	if err := h.files.Delete(ctx, location); err != nil {
		logger.Warn(ctx, "failed to delete stored file", "location", location, "error", err)
	}
}

func buildAnalysis(contractID string, result *model.AnalysisResult, rawReply string) *model.Analysis {
	clauses := make([]model.Clause, 0, len(result.Clauses))
	for i, cl := range result.Clauses {
		reasons, _ := json.Marshal(cl.RiskReasons)
		clauses = append(clauses, model.Clause{
			Type:                     string(cl.Type),
			OriginalText:             cl.OriginalText,
			RiskLevel:                string(cl.RiskLevel),
			PlainLanguageExplanation: cl.PlainLanguageExplanation,
			RiskReasons:              datatypes.JSON(reasons),
			IsOverride:               cl.IsOverride,
			OverrideJustification:    cl.OverrideJustification,
			Position:                 i,
		})
	}

	return &model.Analysis{
		ContractID:       contractID,
		OverallRiskLevel: string(result.OverallRiskLevel),
		Summary:          result.Summary,
		RawResponse:      datatypes.JSON(rawReply),
		Clauses:          clauses,
	}
}

// List returns the contract history projection, most recent first.
func (h *ContractHandler) List(c *gin.Context) {
	contracts, err := h.store.List(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "failed to list contracts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch contracts"})
		return
	}

	result := make([]gin.H, len(contracts))
	for i, contract := range contracts {
		var analysis gin.H
		if contract.Analysis != nil {
			analysis = gin.H{
				"overallRiskLevel": contract.Analysis.OverallRiskLevel,
				"clauseCount":      len(contract.Analysis.Clauses),
			}
		}
		result[i] = gin.H{
			"id":           contract.ID,
			"originalName": contract.OriginalName,
			"createdAt":    contract.CreatedAt.Format(time.RFC3339),
			"analysis":     analysis,
		}
	}

	c.JSON(http.StatusOK, gin.H{"contracts": result})
}

// Get returns the full contract with analysis and chat history.
func (h *ContractHandler) Get(c *gin.Context) {
	contract, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondStoreError(c, err, "Failed to fetch contract")
		return
	}

	var analysis gin.H
	if contract.Analysis != nil {
		analysis = gin.H{
			"id":               contract.Analysis.ID,
			"overallRiskLevel": contract.Analysis.OverallRiskLevel,
			"summary":          contract.Analysis.Summary,
			"clauses":          clausesJSON(contract.Analysis.Clauses),
		}
	}

	messages := make([]gin.H, len(contract.ChatMessages))
	for i, msg := range contract.ChatMessages {
		messages[i] = chatMessageJSON(&msg)
	}

	c.JSON(http.StatusOK, gin.H{
		"contract": gin.H{
			"id":            contract.ID,
			"originalName":  contract.OriginalName,
			"fileType":      contract.FileType,
			"fileSize":      contract.FileSize,
			"extractedText": contract.ExtractedText,
			"createdAt":     contract.CreatedAt.Format(time.RFC3339),
			"analysis":      analysis,
		},
		"chatMessages": messages,
	})
}

// Delete removes the contract, its stored file, and every dependent row.
func (h *ContractHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	contract, err := h.store.Get(ctx, c.Param("id"))
	if err != nil {
		h.respondStoreError(c, err, "Failed to delete contract")
		return
	}

	// File removal is best-effort; the rows must go regardless
	h.cleanupFile(ctx, contract.FilePath)

	if err := h.store.Delete(ctx, contract.ID); err != nil {
		h.respondStoreError(c, err, "Failed to delete contract")
		return
	}

	logger.Info(ctx, "contract deleted", "contract_id", contract.ID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ContractHandler) respondStoreError(c *gin.Context, err error, generic string) {
	if errors.Is(err, service.ErrContractNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}
	logger.Error(c.Request.Context(), "store operation failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": generic})
}

func clausesJSON(clauses []model.Clause) []gin.H {
	result := make([]gin.H, len(clauses))
	for i, cl := range clauses {
		var reasons []string
		if len(cl.RiskReasons) > 0 {
			_ = json.Unmarshal(cl.RiskReasons, &reasons)
		}
		// A stored null or unreadable column still serializes as []
		if reasons == nil {
			reasons = []string{}
		}
		result[i] = gin.H{
			"id":                       cl.ID,
			"type":                     cl.Type,
			"originalText":             cl.OriginalText,
			"riskLevel":                cl.RiskLevel,
			"plainLanguageExplanation": cl.PlainLanguageExplanation,
			"riskReasons":              reasons,
			"isOverride":               cl.IsOverride,
			"overrideJustification":    cl.OverrideJustification,
		}
	}
	return result
}

func chatMessageJSON(msg *model.ChatMessage) gin.H {
	return gin.H{
		"id":            msg.ID,
		"role":          msg.Role,
		"content":       msg.Content,
		"clauseContext": msg.ClauseContext,
		"createdAt":     msg.CreatedAt.Format(time.RFC3339),
	}
}
