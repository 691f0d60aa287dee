package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sundayhq/sunday-scheduler/internal/models"
	"github.com/sundayhq/sunday-scheduler/internal/repository"
)

// TriggerRegistry is the external time-trigger collaborator: it fires once at
// the registered time so the item is dispatched without waiting for the next
// periodic tick.
type TriggerRegistry interface {
	Register(ctx context.Context, itemID int64, when time.Time) error
	Cancel(ctx context.Context, itemID int64) error
}

// Recover actions.
const (
	RecoverActionRetry = "retry"
	RecoverActionFail  = "fail"
)

const manualFailureMessage = "manually failed by operator recovery"

// ScheduleService is the user-facing gateway into the state machine. A
// schedule call succeeds only if both the local row and the external trigger
// registration land; a registration failure rolls the row back.
type ScheduleService interface {
	Schedule(ctx context.Context, userID, itemID int64, when time.Time) (*models.PublishItem, error)
	Unschedule(ctx context.Context, userID, itemID int64) (*models.PublishItem, error)
	Recover(ctx context.Context, userID, itemID int64, action string) (*models.PublishItem, error)
}

type scheduleService struct {
	ir repository.ItemRepository
	tg TriggerRegistry
}

func NewScheduleService(ir repository.ItemRepository, tg TriggerRegistry) ScheduleService {
	return &scheduleService{ir: ir, tg: tg}
}

func (s *scheduleService) Schedule(ctx context.Context, userID, itemID int64, when time.Time) (*models.PublishItem, error) {
	item, err := s.getOwned(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if !when.After(time.Now()) {
		return nil, fmt.Errorf("%w: scheduled time must be in the future", ErrValidation)
	}
	if item.Status != models.StatusDraft && item.Status != models.StatusFailed {
		return nil, fmt.Errorf("%w: cannot schedule item in status %s", ErrConflict, item.Status)
	}

	prev := *item
	if err := s.ir.SetScheduled(ctx, itemID, when); err != nil {
		return nil, err
	}

	if err := s.tg.Register(ctx, itemID, when); err != nil {
		slog.Info(err.Error())
		if rbErr := s.ir.Restore(ctx, &prev); rbErr != nil {
			slog.Info("rollback after registration failure also failed", "item_id", itemID, "error", rbErr.Error())
		}
		return nil, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	slog.Info("item scheduled", "item_id", itemID, "scheduled_at", when)
	return s.getOwned(ctx, userID, itemID)
}

func (s *scheduleService) Unschedule(ctx context.Context, userID, itemID int64) (*models.PublishItem, error) {
	item, err := s.getOwned(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if item.Status != models.StatusScheduled {
		return nil, fmt.Errorf("%w: cannot unschedule item in status %s", ErrConflict, item.Status)
	}

	if err := s.ir.SetDraft(ctx, itemID); err != nil {
		return nil, err
	}

	// Best effort: a trigger that still fires later is tolerated downstream,
	// the dispatcher re-checks status before doing anything.
	if err := s.tg.Cancel(ctx, itemID); err != nil {
		slog.Info("trigger cancel failed", "item_id", itemID, "error", err.Error())
	}

	slog.Info("item unscheduled", "item_id", itemID)
	return s.getOwned(ctx, userID, itemID)
}

// Recover is the operator override for items stuck in publishing beyond the
// normal reclaim window.
func (s *scheduleService) Recover(ctx context.Context, userID, itemID int64, action string) (*models.PublishItem, error) {
	item, err := s.getOwned(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if item.Status != models.StatusPublishing {
		return nil, fmt.Errorf("%w: cannot recover item in status %s", ErrConflict, item.Status)
	}

	switch action {
	case RecoverActionRetry:
		prev := *item
		now := time.Now()
		ok, err := s.ir.Reschedule(ctx, itemID, now, 0)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: item settled concurrently", ErrConflict)
		}
		if err := s.tg.Register(ctx, itemID, now); err != nil {
			slog.Info(err.Error())
			if rbErr := s.ir.Restore(ctx, &prev); rbErr != nil {
				slog.Info("rollback after registration failure also failed", "item_id", itemID, "error", rbErr.Error())
			}
			return nil, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
		}

	case RecoverActionFail:
		ok, err := s.ir.MarkFailed(ctx, itemID, manualFailureMessage, item.RetryCount)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: item settled concurrently", ErrConflict)
		}

	default:
		return nil, fmt.Errorf("%w: unknown recover action %q", ErrValidation, action)
	}

	slog.Info("item recovered", "item_id", itemID, "action", action)
	return s.getOwned(ctx, userID, itemID)
}

func (s *scheduleService) getOwned(ctx context.Context, userID, itemID int64) (*models.PublishItem, error) {
	item, err := s.ir.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.UserID != userID {
		return nil, ErrNotFound
	}
	return item, nil
}
