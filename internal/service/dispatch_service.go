package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sundayhq/sunday-scheduler/internal/models"
	"github.com/sundayhq/sunday-scheduler/internal/repository"
)

// DispatchConfig holds the retry/backoff knobs of the publish state machine.
type DispatchConfig struct {
	MaxRetries   int
	BaseDelay    time.Duration
	StaleTimeout time.Duration
	BatchSize    int
}

func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		MaxRetries:   3,
		BaseDelay:    2 * time.Minute,
		StaleTimeout: 5 * time.Minute,
		BatchSize:    10,
	}
}

type DispatchSummary struct {
	Dispatched int `json:"dispatched"`
	Failed     int `json:"failed"`
}

// DispatchService owns the publishing side of the state machine: it reclaims
// attempts stuck in publishing, selects due items, and hands them to the
// publisher worker. Completion is reported out of band through the reconcile
// service; the two meet only in the item row.
type DispatchService interface {
	ReclaimStale(ctx context.Context) []int64
	DispatchDue(ctx context.Context) DispatchSummary
	DispatchOne(ctx context.Context, itemID int64) error
}

type dispatchService struct {
	ir  repository.ItemRepository
	tr  repository.TargetRepository
	at  repository.AttemptRepository
	pw  PublisherService
	ms  MediaService
	cfg DispatchConfig
}

func NewDispatchService(
	ir repository.ItemRepository,
	tr repository.TargetRepository,
	at repository.AttemptRepository,
	pw PublisherService,
	ms MediaService,
	cfg DispatchConfig) DispatchService {
	return &dispatchService{
		ir:  ir,
		tr:  tr,
		at:  at,
		pw:  pw,
		ms:  ms,
		cfg: cfg,
	}
}

// ReclaimStale returns items stuck in publishing past the stale timeout to
// the scheduled state so the next tick can dispatch them again. The retry
// counter is left alone: a reclaimed attempt was never confirmed to have
// reached the worker, so it is recovered rather than failed.
func (s *dispatchService) ReclaimStale(ctx context.Context) []int64 {
	cutoff := time.Now().Add(-s.cfg.StaleTimeout)

	items, err := s.ir.ListStale(ctx, cutoff, s.cfg.MaxRetries)
	if err != nil {
		slog.Info(err.Error())
		return nil
	}

	var reclaimed []int64
	for _, item := range items {
		ok, err := s.ir.ReturnToScheduled(ctx, item.ID)
		if err != nil {
			slog.Info(err.Error())
			continue
		}
		if !ok {
			// Settled between the select and the update.
			continue
		}
		reclaimed = append(reclaimed, item.ID)
		slog.Info("reclaimed stuck item", "item_id", item.ID, "retry_count", item.RetryCount)
	}

	return reclaimed
}

// DispatchDue selects due scheduled items up to the batch ceiling and hands
// each to the publisher worker, one goroutine per item. Per-item failures are
// absorbed into the retry/backoff cycle and only surface in the counts.
func (s *dispatchService) DispatchDue(ctx context.Context) DispatchSummary {
	items, err := s.ir.ListDue(ctx, time.Now(), s.cfg.MaxRetries, s.cfg.BatchSize)
	if err != nil {
		slog.Info(err.Error())
		return DispatchSummary{}
	}

	var (
		mu      sync.Mutex
		summary DispatchSummary
	)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 10)

	for _, item := range items {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(item *models.PublishItem) {
			defer wg.Done()
			defer func() { <-semaphore }()

			outcome := s.dispatchItem(ctx, item)

			mu.Lock()
			switch outcome {
			case outcomeDispatched:
				summary.Dispatched++
			case outcomeFailed:
				summary.Failed++
			}
			mu.Unlock()
		}(item)
	}

	wg.Wait()
	return summary
}

// DispatchOne dispatches a single item when its time trigger fires. The item
// is re-checked first: a trigger firing for an item that was unscheduled,
// re-dispatched, or already settled is dropped silently.
func (s *dispatchService) DispatchOne(ctx context.Context, itemID int64) error {
	item, err := s.ir.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		slog.Info("trigger fired for unknown item", "item_id", itemID)
		return nil
	}

	if item.Status != models.StatusScheduled {
		slog.Info("trigger fired for item no longer scheduled", "item_id", itemID, "status", string(item.Status))
		return nil
	}
	if !item.ScheduledAt.Valid || item.ScheduledAt.Time.After(time.Now()) {
		return nil
	}
	if item.RetryCount >= s.cfg.MaxRetries {
		return nil
	}

	s.dispatchItem(ctx, item)
	return nil
}

type dispatchOutcome int

const (
	outcomeSkipped dispatchOutcome = iota
	outcomeDispatched
	outcomeFailed
)

func (s *dispatchService) dispatchItem(ctx context.Context, item *models.PublishItem) dispatchOutcome {
	ok, err := s.ir.MarkPublishing(ctx, item.ID)
	if err != nil || !ok {
		// Lost the row to a concurrent dispatcher or the store hiccuped;
		// either way the next tick picks it up again.
		return outcomeSkipped
	}

	if reason := s.submit(ctx, item); reason != "" {
		s.handleDispatchFailure(ctx, item, reason)
		return outcomeFailed
	}

	// Success: the item stays in publishing until the worker reports back.
	s.recordAttempt(ctx, item, "")
	return outcomeDispatched
}

// submit resolves the owner's publish target and media, then calls the
// worker. It returns a failure reason, empty on success.
func (s *dispatchService) submit(ctx context.Context, item *models.PublishItem) string {
	target, err := s.tr.GetByUserID(ctx, item.UserID)
	if err != nil {
		return fmt.Sprintf("credential lookup failed: %v", err)
	}
	if target == nil {
		return "no publishing target connected"
	}

	var mediaURL string
	if item.MediaKey.Valid && item.MediaKey.String != "" {
		mediaURL, err = s.ms.PresignURL(ctx, item.MediaKey.String)
		if err != nil {
			return fmt.Sprintf("media unavailable: %v", err)
		}
	}

	idempotencyKey, err := gonanoid.New()
	if err != nil {
		return fmt.Sprintf("idempotency key generation failed: %v", err)
	}

	err = s.pw.Submit(ctx, &SubmitRequest{
		ItemID:         item.ID,
		UserID:         item.UserID,
		Caption:        item.Caption,
		Title:          item.Title,
		MediaURL:       mediaURL,
		Platform:       target.Platform,
		AccountName:    target.AccountName,
		CredentialRef:  target.CredentialRef,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return err.Error()
	}

	return ""
}

func (s *dispatchService) handleDispatchFailure(ctx context.Context, item *models.PublishItem, reason string) {
	retryCount := item.RetryCount + 1
	s.recordAttempt(ctx, item, reason)

	if retryCount >= s.cfg.MaxRetries {
		if _, err := s.ir.MarkFailed(ctx, item.ID, reason, retryCount); err != nil {
			slog.Info(err.Error())
		}
		slog.Info("item failed permanently", "item_id", item.ID, "retry_count", retryCount, "reason", reason)
		return
	}

	// Exponential backoff: base * 2^(previous retry count).
	delay := s.cfg.BaseDelay << uint(item.RetryCount)
	next := time.Now().Add(delay)
	ok, err := s.ir.Reschedule(ctx, item.ID, next, retryCount)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if !ok {
		// The worker's callback settled the row while the failure was being
		// handled; the settled state wins.
		slog.Info("item settled concurrently, dropping reschedule", "item_id", item.ID)
		return
	}
	slog.Info("dispatch failed, rescheduled", "item_id", item.ID, "retry_count", retryCount, "next_attempt", next, "reason", reason)
}

func (s *dispatchService) recordAttempt(ctx context.Context, item *models.PublishItem, errorMessage string) {
	attempt := &models.DispatchAttempt{
		UserID:       item.UserID,
		ItemID:       item.ID,
		Attempt:      item.RetryCount + 1,
		ErrorMessage: errorMessage,
	}
	if _, err := s.at.Create(ctx, attempt); err != nil {
		slog.Info(err.Error())
	}
}
