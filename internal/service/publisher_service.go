package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	cfg "github.com/sundayhq/sunday-scheduler/configs"
)

// PublisherService hands items to the external publisher worker. The worker
// only acknowledges receipt here; the final result arrives later on the
// callback endpoint.
type PublisherService interface {
	Submit(ctx context.Context, req *SubmitRequest) error
}

type SubmitRequest struct {
	ItemID         int64  `json:"item_id"`
	UserID         int64  `json:"user_id"`
	Caption        string `json:"caption"`
	Title          string `json:"title"`
	MediaURL       string `json:"media_url,omitempty"`
	Platform       string `json:"platform"`
	AccountName    string `json:"account_name"`
	CredentialRef  string `json:"credential_ref"`
	IdempotencyKey string `json:"idempotency_key"`
}

type publisherService struct {
	config cfg.Config
	client *http.Client
}

func NewPublisherService(cfg cfg.Config) PublisherService {
	return &publisherService{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *publisherService) Submit(ctx context.Context, req *SubmitRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WorkerWebhookURL, bytes.NewReader(body))
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("publisher worker unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		err = fmt.Errorf("publisher worker returned %d: %s", resp.StatusCode, string(respBody))
		slog.Info(err.Error())
		return err
	}

	return nil
}
