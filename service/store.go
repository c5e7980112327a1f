package service

import (
	"context"
	"errors"

	"github.com/clauselens/backend/model"
	"gorm.io/gorm"
)

// ErrContractNotFound is returned for operations against a missing contract,
// including one deleted while the operation was in flight.
var ErrContractNotFound = errors.New("contract not found")

// ContractStore is the durable record store for contracts, their analysis and
// clauses, and their chat history. There are no update operations anywhere in
// the pipeline; rows are created once and removed by cascade.
type ContractStore struct {
	db *gorm.DB
}

func NewContractStore(db *gorm.DB) *ContractStore {
	return &ContractStore{db: db}
}

// Create inserts a new contract row.
func (s *ContractStore) Create(ctx context.Context, contract *model.Contract) error {
	return s.db.WithContext(ctx).Create(contract).Error
}

// Get loads a contract with its analysis, clauses in model output order, and
// full chat history oldest-first.
func (s *ContractStore) Get(ctx context.Context, id string) (*model.Contract, error) {
	var contract model.Contract
	err := s.db.WithContext(ctx).
		Preload("Analysis.Clauses", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("ChatMessages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&contract, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	return &contract, nil
}

// List returns all contracts most-recent-first with analysis and clauses
// preloaded, for the lightweight list projection.
func (s *ContractStore) List(ctx context.Context) ([]model.Contract, error) {
	var contracts []model.Contract
	err := s.db.WithContext(ctx).
		Preload("Analysis.Clauses").
		Order("created_at DESC").
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

// Delete removes a contract; the analysis, clauses, and chat messages go with
// it through the foreign key cascade.
func (s *ContractStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.Contract{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrContractNotFound
	}
	return nil
}

// CreateAnalysis persists an analysis and its clauses as one atomic write.
func (s *ContractStore) CreateAnalysis(ctx context.Context, analysis *model.Analysis) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(analysis).Error
	})
}

// ChatHistory returns up to limit of the most recent chat messages for a
// contract, ordered oldest-first.
func (s *ContractStore) ChatHistory(ctx context.Context, contractID string, limit int) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	err := s.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Reverse back to oldest-first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// AppendChatPair persists a user message and its assistant reply together,
// user first. Both rows land or neither does; if the contract was deleted
// while the exchange was in flight, the pair is rejected as not-found.
func (s *ContractStore) AppendChatPair(ctx context.Context, userMsg, assistantMsg *model.ChatMessage) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists model.Contract
		if err := tx.Select("id").First(&exists, "id = ?", userMsg.ContractID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContractNotFound
			}
			return err
		}
		if err := tx.Create(userMsg).Error; err != nil {
			return err
		}
		return tx.Create(assistantMsg).Error
	})
}
