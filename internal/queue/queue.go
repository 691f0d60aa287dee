package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TriggerRegistry implements the gateway's time-trigger collaborator on top
// of asynq: registering a trigger enqueues a delayed task with a
// deterministic ID derived from the item, so a re-registration replaces any
// pending firing and a cancel can find it later.
type TriggerRegistry struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func NewTriggerRegistry(client *asynq.Client, inspector *asynq.Inspector) *TriggerRegistry {
	return &TriggerRegistry{client: client, inspector: inspector}
}

func triggerTaskID(itemID int64) string {
	return fmt.Sprintf("publish-trigger-%d", itemID)
}

func (t *TriggerRegistry) Register(ctx context.Context, itemID int64, when time.Time) error {
	// Drop any pending trigger for this item first; the task ID is unique per
	// item, so a leftover registration would block the new one.
	if err := t.Cancel(ctx, itemID); err != nil {
		return err
	}

	payload, err := json.Marshal(PublishTriggerPayload{ItemID: itemID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishTrigger, payload)
	_, err = t.client.EnqueueContext(ctx, task, asynq.ProcessAt(when), asynq.TaskID(triggerTaskID(itemID)))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	slog.Info("trigger registered", "item_id", itemID, "fire_at", when)
	return nil
}

func (t *TriggerRegistry) Cancel(_ context.Context, itemID int64) error {
	err := t.inspector.DeleteTask("default", triggerTaskID(itemID))
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil
		}
		slog.Info(err.Error())
		return err
	}
	return nil
}
