package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sundayhq/sunday-scheduler/internal/models"
	"github.com/sundayhq/sunday-scheduler/internal/repository"
	"github.com/sundayhq/sunday-scheduler/internal/transfer"
)

// ItemService is the CRUD surface around the state machine: drafts in, item
// listings and attempt history out. All operations are owner-scoped.
type ItemService interface {
	Create(ctx context.Context, userID int64, ic *transfer.ItemCreation) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.PublishItem, error)
	Info(ctx context.Context, itemID, userID int64) (*models.PublishItem, error)
	Remove(ctx context.Context, userID, itemID int64) error
	ListAttempts(ctx context.Context, userID int64) ([]*models.DispatchAttempt, error)
}

type itemService struct {
	ir repository.ItemRepository
	at repository.AttemptRepository
	ms MediaService
	tg TriggerRegistry
}

func NewItemService(
	ir repository.ItemRepository,
	at repository.AttemptRepository,
	ms MediaService,
	tg TriggerRegistry) ItemService {
	return &itemService{
		ir: ir,
		at: at,
		ms: ms,
		tg: tg,
	}
}

func (s *itemService) Create(ctx context.Context, userID int64, ic *transfer.ItemCreation) (int64, error) {
	if ic == nil {
		err := errors.New("item creation data is nil")
		slog.Error(err.Error())
		return 0, err
	}
	if ic.Caption == "" {
		return 0, fmt.Errorf("%w: caption cannot be empty", ErrValidation)
	}

	item := models.PublishItem{
		UserID:  userID,
		Caption: ic.Caption,
		Title:   ic.Title,
	}
	if ic.MediaKey != "" {
		item.MediaKey.String = ic.MediaKey
		item.MediaKey.Valid = true
	}

	id, err := s.ir.Create(ctx, &item)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *itemService) List(ctx context.Context, userID int64) ([]*models.PublishItem, error) {
	return s.ir.ListByUserID(ctx, userID)
}

func (s *itemService) Info(ctx context.Context, itemID, userID int64) (*models.PublishItem, error) {
	item, err := s.ir.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.UserID != userID {
		return nil, ErrNotFound
	}
	return item, nil
}

func (s *itemService) Remove(ctx context.Context, userID, itemID int64) error {
	item, err := s.ir.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil || item.UserID != userID {
		return ErrNotFound
	}

	// Best effort cleanup of the pending trigger and stored media; a stray
	// trigger for a deleted item is dropped by the dispatcher's re-check.
	if item.Status == models.StatusScheduled {
		if err := s.tg.Cancel(ctx, itemID); err != nil {
			slog.Info("trigger cancel failed", "item_id", itemID, "error", err.Error())
		}
	}
	if item.MediaKey.Valid && item.MediaKey.String != "" {
		if err := s.ms.Delete(ctx, item.MediaKey.String); err != nil {
			slog.Info("media delete failed", "item_id", itemID, "error", err.Error())
		}
	}

	return s.ir.Remove(ctx, itemID)
}

func (s *itemService) ListAttempts(ctx context.Context, userID int64) ([]*models.DispatchAttempt, error) {
	return s.at.ListByUserID(ctx, userID)
}
