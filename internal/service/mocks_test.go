package service_test

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sundayhq/sunday-scheduler/internal/models"
	"github.com/sundayhq/sunday-scheduler/internal/repository"
	"github.com/sundayhq/sunday-scheduler/internal/service"
)

// In-memory stand-ins for the repositories and collaborators, mimicking the
// row-level guarantees of the real store: guarded mutators only win the row
// when the status precondition holds.

func nullTime(at time.Time) sql.NullTime {
	return sql.NullTime{Time: at, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

type fakeItemRepo struct {
	mu    sync.Mutex
	seq   int64
	items map[int64]*models.PublishItem

	failSetScheduled bool
	failReschedule   bool

	// removeAfterSetDraft deletes the row right after SetDraft, standing in
	// for a concurrent delete between the write and the trailing read.
	removeAfterSetDraft bool
}

var _ repository.ItemRepository = (*fakeItemRepo)(nil)

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[int64]*models.PublishItem)}
}

func (r *fakeItemRepo) add(item *models.PublishItem) *models.PublishItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	item.ID = r.seq
	if item.Status == "" {
		item.Status = models.StatusDraft
	}
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	r.items[item.ID] = item
	return item
}

func (r *fakeItemRepo) get(id int64) models.PublishItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.items[id]
}

// setUpdatedAt backdates a row, standing in for time passing.
func (r *fakeItemRepo) setUpdatedAt(id int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id].UpdatedAt = at
}

func (r *fakeItemRepo) setScheduledAt(id int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id].ScheduledAt = nullTime(at)
}

func (r *fakeItemRepo) Create(_ context.Context, item *models.PublishItem) (int64, error) {
	return r.add(item).ID, nil
}

func (r *fakeItemRepo) GetByID(_ context.Context, id int64) (*models.PublishItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (r *fakeItemRepo) ListByUserID(_ context.Context, userID int64) ([]*models.PublishItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []*models.PublishItem
	for _, item := range r.items {
		if item.UserID == userID {
			cp := *item
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (r *fakeItemRepo) CheckByUserID(_ context.Context, itemID, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[itemID]
	return ok && item.UserID == userID, nil
}

func (r *fakeItemRepo) Remove(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *fakeItemRepo) ListDue(_ context.Context, now time.Time, maxRetries, limit int) ([]*models.PublishItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*models.PublishItem
	for _, item := range r.items {
		if item.Status == models.StatusScheduled &&
			item.ScheduledAt.Valid && !item.ScheduledAt.Time.After(now) &&
			item.RetryCount < maxRetries {
			cp := *item
			due = append(due, &cp)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduledAt.Time.Before(due[j].ScheduledAt.Time)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *fakeItemRepo) ListStale(_ context.Context, cutoff time.Time, maxRetries int) ([]*models.PublishItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []*models.PublishItem
	for _, item := range r.items {
		if item.Status == models.StatusPublishing &&
			!item.UpdatedAt.After(cutoff) &&
			item.RetryCount < maxRetries {
			cp := *item
			stale = append(stale, &cp)
		}
	}
	return stale, nil
}

func (r *fakeItemRepo) MarkPublishing(_ context.Context, id int64) (bool, error) {
	return r.guarded(id, models.StatusScheduled, func(item *models.PublishItem) {
		item.Status = models.StatusPublishing
	})
}

func (r *fakeItemRepo) MarkPublished(_ context.Context, id int64, externalRef string) (bool, error) {
	return r.guarded(id, models.StatusPublishing, func(item *models.PublishItem) {
		item.Status = models.StatusPublished
		item.PublishedAt.Time = time.Now()
		item.PublishedAt.Valid = true
		item.ExternalRef.String = externalRef
		item.ExternalRef.Valid = true
	})
}

func (r *fakeItemRepo) MarkFailed(_ context.Context, id int64, errorMessage string, retryCount int) (bool, error) {
	return r.guarded(id, models.StatusPublishing, func(item *models.PublishItem) {
		item.Status = models.StatusFailed
		item.ErrorMessage.String = errorMessage
		item.ErrorMessage.Valid = true
		item.RetryCount = retryCount
	})
}

func (r *fakeItemRepo) ReturnToScheduled(_ context.Context, id int64) (bool, error) {
	return r.guarded(id, models.StatusPublishing, func(item *models.PublishItem) {
		item.Status = models.StatusScheduled
	})
}

func (r *fakeItemRepo) Reschedule(_ context.Context, id int64, at time.Time, retryCount int) (bool, error) {
	if r.failReschedule {
		return false, errors.New("store unavailable")
	}

	return r.guarded(id, models.StatusPublishing, func(item *models.PublishItem) {
		item.Status = models.StatusScheduled
		item.ScheduledAt = nullTime(at)
		item.RetryCount = retryCount
	})
}

func (r *fakeItemRepo) SetScheduled(_ context.Context, id int64, at time.Time) error {
	if r.failSetScheduled {
		return errors.New("store unavailable")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil
	}
	item.Status = models.StatusScheduled
	item.ScheduledAt = nullTime(at)
	item.RetryCount = 0
	item.UpdatedAt = time.Now()
	return nil
}

func (r *fakeItemRepo) SetDraft(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil
	}
	item.Status = models.StatusDraft
	item.ScheduledAt.Valid = false
	item.ScheduledAt.Time = time.Time{}
	item.RetryCount = 0
	item.UpdatedAt = time.Now()
	if r.removeAfterSetDraft {
		delete(r.items, id)
	}
	return nil
}

func (r *fakeItemRepo) Restore(_ context.Context, snapshot *models.PublishItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[snapshot.ID]
	if !ok {
		return nil
	}
	item.Status = snapshot.Status
	item.ScheduledAt = snapshot.ScheduledAt
	item.ErrorMessage = snapshot.ErrorMessage
	item.RetryCount = snapshot.RetryCount
	item.UpdatedAt = time.Now()
	return nil
}

func (r *fakeItemRepo) guarded(id int64, from models.Status, mutate func(*models.PublishItem)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.Status != from {
		return false, nil
	}
	mutate(item)
	item.UpdatedAt = time.Now()
	return true, nil
}

type fakeTargetRepo struct {
	mu      sync.Mutex
	seq     int64
	targets map[int64]*models.PublishTarget
}

var _ repository.TargetRepository = (*fakeTargetRepo)(nil)

func newFakeTargetRepo() *fakeTargetRepo {
	return &fakeTargetRepo{targets: make(map[int64]*models.PublishTarget)}
}

func (r *fakeTargetRepo) Create(_ context.Context, target *models.PublishTarget) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	target.ID = r.seq
	r.targets[target.ID] = target
	return target.ID, nil
}

func (r *fakeTargetRepo) GetByID(_ context.Context, id int64) (*models.PublishTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.targets[id]
	if !ok {
		return nil, nil
	}
	cp := *target
	return &cp, nil
}

func (r *fakeTargetRepo) GetByUserID(_ context.Context, userID int64) (*models.PublishTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, target := range r.targets {
		if target.UserID == userID {
			cp := *target
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeTargetRepo) ListByUserID(_ context.Context, userID int64) ([]*models.PublishTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var targets []*models.PublishTarget
	for _, target := range r.targets {
		if target.UserID == userID {
			cp := *target
			targets = append(targets, &cp)
		}
	}
	return targets, nil
}

func (r *fakeTargetRepo) CheckByUserID(_ context.Context, targetID, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.targets[targetID]
	return ok && target.UserID == userID, nil
}

func (r *fakeTargetRepo) Remove(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.targets, id)
	return nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	seq      int64
	attempts []*models.DispatchAttempt
}

var _ repository.AttemptRepository = (*fakeAttemptRepo)(nil)

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{}
}

func (r *fakeAttemptRepo) Create(_ context.Context, attempt *models.DispatchAttempt) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	attempt.ID = r.seq
	attempt.CreatedAt = time.Now()
	cp := *attempt
	r.attempts = append(r.attempts, &cp)
	return attempt.ID, nil
}

func (r *fakeAttemptRepo) ListByItemID(_ context.Context, itemID int64) ([]*models.DispatchAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.DispatchAttempt
	for _, a := range r.attempts {
		if a.ItemID == itemID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) ListByUserID(_ context.Context, userID int64) ([]*models.DispatchAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.DispatchAttempt
	for _, a := range r.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	err      error
	requests []*service.SubmitRequest
}

var _ service.PublisherService = (*fakePublisher)(nil)

func (p *fakePublisher) Submit(_ context.Context, req *service.SubmitRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.requests = append(p.requests, req)
	return nil
}

func (p *fakePublisher) submitted() []*service.SubmitRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*service.SubmitRequest(nil), p.requests...)
}

type fakeMedia struct {
	err     error
	deleted []string
}

var _ service.MediaService = (*fakeMedia)(nil)

func (m *fakeMedia) PresignURL(_ context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "https://media.test/" + key, nil
}

func (m *fakeMedia) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

type fakeTriggers struct {
	mu          sync.Mutex
	registerErr error
	cancelErr   error
	registered  map[int64]time.Time
	cancelled   []int64
}

var _ service.TriggerRegistry = (*fakeTriggers)(nil)

func newFakeTriggers() *fakeTriggers {
	return &fakeTriggers{registered: make(map[int64]time.Time)}
}

func (t *fakeTriggers) Register(_ context.Context, itemID int64, when time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.registerErr != nil {
		return t.registerErr
	}
	t.registered[itemID] = when
	return nil
}

func (t *fakeTriggers) Cancel(_ context.Context, itemID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelErr != nil {
		return t.cancelErr
	}
	t.cancelled = append(t.cancelled, itemID)
	delete(t.registered, itemID)
	return nil
}
