package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

// HandlePublishTriggerTask fires when an item's registered time arrives. The
// dispatcher re-checks the item's status and due time before doing anything,
// which is what makes cancelled or superseded triggers safe to deliver.
func (q *Queue) HandlePublishTriggerTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishTriggerPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return q.d.DispatchOne(ctx, payload.ItemID)
}
