package service

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	cfg "github.com/sundayhq/sunday-scheduler/configs"
	"github.com/sundayhq/sunday-scheduler/internal/models"
	"github.com/sundayhq/sunday-scheduler/internal/repository"
	"github.com/sundayhq/sunday-scheduler/internal/transfer"
	"github.com/sundayhq/sunday-scheduler/pkg/utils"
)

// TargetService manages publishing destinations. Credentials are stored
// AES-GCM encrypted; the worker receives only the opaque credential_ref and
// redeems it on its own side.
type TargetService interface {
	Create(ctx context.Context, userID int64, tc *transfer.TargetCreation) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.PublishTarget, error)
	Remove(ctx context.Context, userID, targetID int64) error
}

type targetService struct {
	config cfg.Config
	tr     repository.TargetRepository
}

func NewTargetService(cfg cfg.Config, tr repository.TargetRepository) TargetService {
	return &targetService{config: cfg, tr: tr}
}

func (s *targetService) Create(ctx context.Context, userID int64, tc *transfer.TargetCreation) (int64, error) {
	if tc == nil || tc.Platform == "" || tc.Credential == "" {
		return 0, fmt.Errorf("%w: platform and credential are required", ErrValidation)
	}

	encrypted, err := utils.Encrypt([]byte(tc.Credential), []byte(s.config.SecretKey))
	if err != nil {
		return 0, err
	}

	ref, err := gonanoid.New()
	if err != nil {
		return 0, err
	}

	target := &models.PublishTarget{
		UserID:        userID,
		Platform:      tc.Platform,
		AccountName:   tc.AccountName,
		CredentialRef: ref,
		Credential:    encrypted,
	}

	return s.tr.Create(ctx, target)
}

func (s *targetService) List(ctx context.Context, userID int64) ([]*models.PublishTarget, error) {
	return s.tr.ListByUserID(ctx, userID)
}

func (s *targetService) Remove(ctx context.Context, userID, targetID int64) error {
	isValid, err := s.tr.CheckByUserID(ctx, targetID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		return ErrNotFound
	}

	return s.tr.Remove(ctx, targetID)
}
