package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"witweb-studio/internal/models"
	"witweb-studio/internal/provider"
	"witweb-studio/pkg/logger"
)

// DefaultClaimTTL is how long a claim may stay unfinished before another
// finalize call is allowed to take it over.
const DefaultClaimTTL = 30 * time.Minute

// Mirror copies a stored asset to remote storage and returns its url
type Mirror interface {
	Mirror(ctx context.Context, localPath string) (string, error)
}

// FinalizeOutcome is what a finalize call produced. Exactly one field is set:
// Record for a materialized video, Character for a character task, Snapshot
// when the job has not succeeded yet.
type FinalizeOutcome struct {
	Record    *models.HistoryRecord
	Character *models.Character
	Snapshot  *provider.TaskSnapshot
}

// Finalizer turns a succeeded job into a local artifact exactly once
type Finalizer struct {
	db       *gorm.DB
	poller   *Poller
	store    *ArtifactStore
	mirror   Mirror
	claimTTL time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewFinalizer(db *gorm.DB, poller *Poller, store *ArtifactStore, mirror Mirror) *Finalizer {
	return &Finalizer{
		db:       db,
		poller:   poller,
		store:    store,
		mirror:   mirror,
		claimTTL: DefaultClaimTTL,
		now:      time.Now,
		log:      logger.Named("finalizer"),
	}
}

// Finalize materializes task id. Calling it before the job succeeded returns
// the current snapshot; calling it after materialization returns the stored
// record unchanged.
func (f *Finalizer) Finalize(ctx context.Context, id, prompt string) (*FinalizeOutcome, error) {
	rec, err := f.record(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.State == models.HistoryMaterialized {
		return &FinalizeOutcome{Record: rec}, nil
	}

	task, err := f.task(ctx, id)
	if err != nil {
		return nil, err
	}
	if task != nil && task.Type.IsCharacter() {
		if ch, err := f.character(ctx, id); err != nil {
			return nil, err
		} else if ch != nil {
			// a poll may have recorded the character before finalize ran
			if err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				return retire(tx, id)
			}); err != nil {
				return nil, err
			}
			return &FinalizeOutcome{Character: ch}, nil
		}
	}

	_, snap, err := f.poller.PollAndUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap.Status != models.TaskStatusSucceeded {
		return &FinalizeOutcome{Snapshot: snap}, nil
	}

	if task != nil && task.Type.IsCharacter() {
		return f.finalizeCharacter(ctx, task, snap)
	}
	return f.finalizeVideo(ctx, id, prompt, snap)
}

func (f *Finalizer) finalizeVideo(ctx context.Context, id, prompt string, snap *provider.TaskSnapshot) (*FinalizeOutcome, error) {
	result, ok := snap.FirstURL()
	if !ok {
		return nil, ErrEmptyResult
	}

	rec, err := f.claim(ctx, id, prompt, result)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return &FinalizeOutcome{Record: rec}, nil
	}

	log := f.log.With(zap.String("task_id", id))
	name, err := f.store.Download(ctx, result.URL)
	if err != nil {
		f.release(ctx, id)
		return nil, fmt.Errorf("materialize %s: %w", id, err)
	}

	duration, err := f.elapsed(ctx, id)
	if err != nil {
		f.discard(ctx, id, name)
		return nil, err
	}

	now := f.now()
	err = f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.HistoryRecord{}).
			Where("task_id = ? AND state = ?", id, models.HistoryClaimed).
			Updates(map[string]interface{}{
				"file":             name,
				"duration_seconds": duration,
				"state":            models.HistoryMaterialized,
				"generated_at":     now.Unix(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("claim for %s was lost", id)
		}
		return retire(tx, id)
	})
	if err != nil {
		f.discard(ctx, id, name)
		return nil, fmt.Errorf("complete history for %s: %w", id, err)
	}

	if f.mirror != nil {
		f.mirrorAsset(ctx, id, name)
	}

	rec, err = f.record(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("history for %s disappeared", id)
	}
	log.Info("task materialized", zap.String("file", name))
	return &FinalizeOutcome{Record: rec}, nil
}

func (f *Finalizer) finalizeCharacter(ctx context.Context, task *models.Task, snap *provider.TaskSnapshot) (*FinalizeOutcome, error) {
	r, ok := firstResult(snap)
	if !ok {
		return nil, ErrEmptyResult
	}

	var ch *models.Character
	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ch, err = recordCharacter(tx, task.Owner, task.ID, r)
		if err != nil {
			return err
		}
		if ch == nil {
			return ErrEmptyResult
		}
		return retire(tx, task.ID)
	})
	if err != nil {
		return nil, err
	}
	f.log.Info("character recorded", zap.String("task_id", task.ID), zap.String("character_id", ch.CharacterID))
	return &FinalizeOutcome{Character: ch}, nil
}

// claim inserts the history row in claimed state. It returns a non-nil
// record when another caller already materialized the task.
func (f *Finalizer) claim(ctx context.Context, id, prompt string, result provider.Result) (*models.HistoryRecord, error) {
	for attempt := 0; attempt < 2; attempt++ {
		row := models.HistoryRecord{
			TaskID:      id,
			URL:         result.URL,
			PID:         result.PID,
			CharacterID: result.CharacterID,
			Prompt:      prompt,
			State:       models.HistoryClaimed,
			CreatedAt:   f.now(),
			Time:        f.now().Unix(),
		}
		res := f.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return nil, fmt.Errorf("claim %s: %w", id, res.Error)
		}
		if res.RowsAffected == 1 {
			return nil, nil
		}

		existing, err := f.record(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			// released between our insert and read
			continue
		}
		if existing.State == models.HistoryMaterialized {
			return existing, nil
		}
		if f.now().Sub(existing.CreatedAt) < f.claimTTL {
			return nil, ErrFinalizeInProgress
		}

		f.log.Warn("taking over stale claim", zap.String("task_id", id), zap.Time("claimed_at", existing.CreatedAt))
		err = f.db.WithContext(ctx).
			Where("task_id = ? AND state = ? AND id = ?", id, models.HistoryClaimed, existing.ID).
			Delete(&models.HistoryRecord{}).Error
		if err != nil {
			return nil, fmt.Errorf("drop stale claim %s: %w", id, err)
		}
	}
	return nil, ErrFinalizeInProgress
}

// release drops an unfinished claim so a later call can retry
func (f *Finalizer) release(ctx context.Context, id string) {
	err := f.db.WithContext(context.WithoutCancel(ctx)).
		Where("task_id = ? AND state = ?", id, models.HistoryClaimed).
		Delete(&models.HistoryRecord{}).Error
	if err != nil {
		f.log.Error("release claim", zap.String("task_id", id), zap.Error(err))
	}
}

func (f *Finalizer) discard(ctx context.Context, id, name string) {
	if err := f.store.Remove(name); err != nil {
		f.log.Warn("remove orphaned asset", zap.String("file", name), zap.Error(err))
	}
	f.release(ctx, id)
}

func (f *Finalizer) mirrorAsset(ctx context.Context, id, name string) {
	remote, err := f.mirror.Mirror(ctx, f.store.Path(name))
	if err != nil {
		f.log.Warn("mirror asset", zap.String("task_id", id), zap.Error(err))
		return
	}
	err = f.db.WithContext(ctx).Model(&models.HistoryRecord{}).
		Where("task_id = ?", id).
		Update("remote_url", remote).Error
	if err != nil {
		f.log.Warn("record mirror url", zap.String("task_id", id), zap.Error(err))
	}
}

// elapsed returns whole seconds since the task timer started, or nil when the
// task has no timer.
func (f *Finalizer) elapsed(ctx context.Context, id string) (*int64, error) {
	var timer models.TaskTimer
	err := f.db.WithContext(ctx).First(&timer, "task_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load timer for %s: %w", id, err)
	}
	secs := int64(f.now().Sub(timer.StartedAt) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &secs, nil
}

func (f *Finalizer) record(ctx context.Context, id string) (*models.HistoryRecord, error) {
	var rec models.HistoryRecord
	err := f.db.WithContext(ctx).First(&rec, "task_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", id, err)
	}
	return &rec, nil
}

func (f *Finalizer) task(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := f.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}
	return &task, nil
}

func (f *Finalizer) character(ctx context.Context, id string) (*models.Character, error) {
	var ch models.Character
	err := f.db.WithContext(ctx).First(&ch, "source_task_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// retire deletes the timer and registry entry of a finished task
func retire(tx *gorm.DB, id string) error {
	if err := tx.Delete(&models.TaskTimer{}, "task_id = ?", id).Error; err != nil {
		return err
	}
	return tx.Delete(&models.ActiveTask{}, "id = ?", id).Error
}
