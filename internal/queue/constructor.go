package queue

import (
	"github.com/sundayhq/sunday-scheduler/internal/service"
)

// Queue handles time-trigger tasks firing from asynq. The trigger only nudges
// the dispatcher; all state lives on the item row, so a stray or duplicate
// firing is harmless.
type Queue struct {
	d service.DispatchService
}

func NewQueue(d service.DispatchService) *Queue {
	return &Queue{d: d}
}

const TaskTypePublishTrigger = "publish:trigger"

type PublishTriggerPayload struct {
	ItemID int64 `json:"item_id"`
}
