package transfer

// ItemCreation is the payload for creating a draft item. MediaKey references
// an object already stored by the media subsystem.
type ItemCreation struct {
	Caption  string `json:"caption"`
	Title    string `json:"title"`
	MediaKey string `json:"media_key"`
}

type ScheduleRequest struct {
	ItemID      int64  `json:"item_id"`
	ScheduledAt string `json:"scheduled_at"`
}

type UnscheduleRequest struct {
	ItemID int64 `json:"item_id"`
}

type RecoverRequest struct {
	ItemID int64  `json:"item_id"`
	Action string `json:"action"`
}

// PublishCallback is the publisher worker's asynchronous result report.
type PublishCallback struct {
	ItemID      int64  `json:"item_id"`
	Outcome     string `json:"outcome"`
	ExternalRef string `json:"external_ref"`
	Error       string `json:"error"`
}

type TargetCreation struct {
	Platform    string `json:"platform"`
	AccountName string `json:"account_name"`
	Credential  string `json:"credential"`
}
