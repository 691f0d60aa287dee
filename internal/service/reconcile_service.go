package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sundayhq/sunday-scheduler/internal/models"
	"github.com/sundayhq/sunday-scheduler/internal/repository"
)

const defaultFailureMessage = "publisher worker reported failure"

// ReconcileService applies the publisher worker's asynchronous result to an
// item. Callbacks can arrive duplicated, out of order, and concurrently; the
// state machine check plus the guarded row update keep that safe without
// locks.
type ReconcileService interface {
	Reconcile(ctx context.Context, itemID int64, outcome models.Status, externalRef, errorMessage string) error
}

type reconcileService struct {
	ir repository.ItemRepository
}

func NewReconcileService(ir repository.ItemRepository) ReconcileService {
	return &reconcileService{ir: ir}
}

func (s *reconcileService) Reconcile(ctx context.Context, itemID int64, outcome models.Status, externalRef, errorMessage string) error {
	if outcome != models.StatusPublished && outcome != models.StatusFailed {
		return fmt.Errorf("%w: outcome must be published or failed", ErrValidation)
	}
	if outcome == models.StatusPublished && externalRef == "" {
		return fmt.Errorf("%w: published outcome requires external_ref", ErrValidation)
	}

	item, err := s.ir.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrNotFound
	}

	// Duplicate delivery of the same callback is a success, not an error.
	if item.Status == outcome {
		if outcome == models.StatusPublished && item.ExternalRef.String != externalRef {
			return fmt.Errorf("%w: item already published with a different external_ref", ErrConflict)
		}
		slog.Info("duplicate callback ignored", "item_id", itemID, "outcome", string(outcome))
		return nil
	}

	// Only an in-flight attempt can settle. Anything else means the item was
	// reclaimed or re-dispatched since this attempt started.
	if item.Status != models.StatusPublishing {
		return fmt.Errorf("%w: item is %s", ErrConflict, item.Status)
	}

	switch outcome {
	case models.StatusPublished:
		ok, err := s.ir.MarkPublished(ctx, itemID, externalRef)
		if err != nil {
			return err
		}
		if !ok {
			// A concurrent callback won the row between read and write.
			return fmt.Errorf("%w: item settled concurrently", ErrConflict)
		}
		slog.Info("item published", "item_id", itemID, "external_ref", externalRef)

	case models.StatusFailed:
		if errorMessage == "" {
			errorMessage = defaultFailureMessage
		}
		ok, err := s.ir.MarkFailed(ctx, itemID, errorMessage, item.RetryCount)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: item settled concurrently", ErrConflict)
		}
		slog.Info("item failed", "item_id", itemID, "error", errorMessage)
	}

	return nil
}
