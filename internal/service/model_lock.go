package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ifrs17/internal/models"
	"ifrs17/internal/repository"
)

var (
	ErrModelNotFound = errors.New("model definition not found")
	ErrModelLocked   = errors.New("model definition is locked by another user")
)

// ModelLockService implements the cooperative advisory edit lock on model
// definitions. The lock is checked before updates but not enforced at the
// database level; stale locks are swept by cron after LockTTL.
type ModelLockService struct {
	Repo    repository.Repository
	Logger  *zap.Logger
	LockTTL time.Duration
}

func (s *ModelLockService) Acquire(ctx context.Context, id uint64, user string) (*models.ModelDefinition, error) {
	model, err := s.Repo.GetModelDefinition(ctx, id)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, fmt.Errorf("%w: %d", ErrModelNotFound, id)
	}
	if s.heldByOther(model, user) {
		return nil, fmt.Errorf("%w: %s", ErrModelLocked, *model.LockedBy)
	}
	now := time.Now().UTC()
	model.LockedBy = &user
	model.LockedAt = &now
	if err := s.Repo.UpdateModelDefinition(ctx, model); err != nil {
		return nil, err
	}
	return model, nil
}

func (s *ModelLockService) Release(ctx context.Context, id uint64, user string) error {
	model, err := s.Repo.GetModelDefinition(ctx, id)
	if err != nil {
		return err
	}
	if model == nil {
		return fmt.Errorf("%w: %d", ErrModelNotFound, id)
	}
	if s.heldByOther(model, user) {
		return fmt.Errorf("%w: %s", ErrModelLocked, *model.LockedBy)
	}
	model.LockedBy = nil
	model.LockedAt = nil
	return s.Repo.UpdateModelDefinition(ctx, model)
}

// CheckEditable verifies the cooperative lock before an update.
func (s *ModelLockService) CheckEditable(model *models.ModelDefinition, user string) error {
	if model == nil {
		return ErrModelNotFound
	}
	if s.heldByOther(model, user) {
		return fmt.Errorf("%w: %s", ErrModelLocked, *model.LockedBy)
	}
	return nil
}

func (s *ModelLockService) heldByOther(model *models.ModelDefinition, user string) bool {
	if model.LockedBy == nil || *model.LockedBy == "" || *model.LockedBy == user {
		return false
	}
	if s.LockTTL > 0 && model.LockedAt != nil && time.Since(*model.LockedAt) > s.LockTTL {
		// Expired lock: treat as free.
		return false
	}
	return true
}

// SweepStale releases locks older than the TTL. Called from cron.
func (s *ModelLockService) SweepStale(ctx context.Context) {
	ttl := s.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	released, err := s.Repo.ReleaseStaleModelLocks(ctx, time.Now().UTC().Add(-ttl))
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("stale lock sweep failed", zap.Error(err))
		}
		return
	}
	if released > 0 && s.Logger != nil {
		s.Logger.Info("released stale model locks", zap.Int64("count", released))
	}
}
