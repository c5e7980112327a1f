package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/clauselens/backend/config"
	"github.com/clauselens/backend/model"
	"github.com/clauselens/backend/pkg/logger"
	"github.com/clauselens/backend/service"
	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	store     *service.ContractStore
	generator service.Generator
	cfg       *config.Config
}

func NewChatHandler(store *service.ContractStore, generator service.Generator, cfg *config.Config) *ChatHandler {
	return &ChatHandler{
		store:     store,
		generator: generator,
		cfg:       cfg,
	}
}

type chatRequest struct {
	Message       string `json:"message"`
	ClauseContext string `json:"clauseContext"`
}

// Send handles one Q&A exchange against a contract. The user and assistant
// turns are persisted together only after a successful generation, so a
// failed call leaves no orphaned user message behind.
func (h *ChatHandler) Send(c *gin.Context) {
	ctx := c.Request.Context()
	contractID := c.Param("id")

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
		return
	}
	if utf8.RuneCountInString(message) > h.cfg.Chat.MaxMessageLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Message must be under %d characters", h.cfg.Chat.MaxMessageLength)})
		return
	}

	contract, err := h.store.Get(ctx, contractID)
	if err != nil {
		if errors.Is(err, service.ErrContractNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
			return
		}
		logger.Error(ctx, "failed to load contract for chat", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message. Please try again."})
		return
	}

	history, err := h.store.ChatHistory(ctx, contractID, h.cfg.Chat.HistoryLimit)
	if err != nil {
		logger.Error(ctx, "failed to load chat history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message. Please try again."})
		return
	}

	historyTurns := make([]service.ChatTurn, len(history))
	for i, msg := range history {
		historyTurns[i] = service.ChatTurn{Role: msg.Role, Content: msg.Content}
	}

	chatContext := service.BuildChatContext(contract.ExtractedText, contract.Analysis, req.ClauseContext)
	turns := service.BuildChatTurns(historyTurns, chatContext, message)

	sensitive := service.IsSensitiveTopic(message)

	reply, err := h.generator.Generate(ctx, service.ChatSystemPrompt, turns, h.cfg.LLM.ChatMaxTokens)
	if err != nil {
		logger.Warn(ctx, "chat generation failed", "contract_id", contractID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Chat service unavailable. Please try again."})
		return
	}

	if sensitive {
		topic := service.SensitiveTopic(message)
		reply += fmt.Sprintf("\n\n---\n\n*%s*", service.EnhancedDisclaimer(topic))
	}

	var clauseContext *string
	if req.ClauseContext != "" {
		clauseContext = &req.ClauseContext
	}

	userMsg := &model.ChatMessage{
		ContractID:    contractID,
		Role:          model.RoleUser,
		Content:       message,
		ClauseContext: clauseContext,
	}
	assistantMsg := &model.ChatMessage{
		ContractID:    contractID,
		Role:          model.RoleAssistant,
		Content:       reply,
		ClauseContext: clauseContext,
	}

	if err := h.store.AppendChatPair(ctx, userMsg, assistantMsg); err != nil {
		if errors.Is(err, service.ErrContractNotFound) {
			// Contract deleted while the exchange was in flight
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
			return
		}
		logger.Error(ctx, "failed to persist chat messages", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message. Please try again."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userMessage": chatMessageJSON(userMsg),
		"message":     chatMessageJSON(assistantMsg),
	})
}
