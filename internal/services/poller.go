package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"witweb-studio/internal/models"
	"witweb-studio/internal/provider"
	"witweb-studio/pkg/logger"
)

const DefaultPollInterval = 10 * time.Second

// Poller reads job status from the provider
type Poller struct {
	db       *gorm.DB
	client   *provider.Client
	interval time.Duration
	log      *zap.Logger
}

func NewPoller(db *gorm.DB, client *provider.Client, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		db:       db,
		client:   client,
		interval: interval,
		log:      logger.Named("poller"),
	}
}

// GetResult performs a single status read. It never writes local state.
func (p *Poller) GetResult(ctx context.Context, id string) (*provider.TaskSnapshot, error) {
	return p.client.GetResult(ctx, id)
}

// PollResult waits until the job reaches a terminal status. A failed job is
// returned as *TaskFailedError.
func (p *Poller) PollResult(ctx context.Context, id string) (*provider.TaskSnapshot, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		snap, err := p.GetResult(ctx, id)
		if err != nil {
			return nil, err
		}
		switch snap.Status {
		case models.TaskStatusSucceeded:
			return snap, nil
		case models.TaskStatusFailed:
			return nil, &TaskFailedError{TaskID: id, Reason: snap.FailureMessage()}
		}
		p.log.Debug("task still running", zap.String("task_id", id), zap.String("status", string(snap.Status)), zap.Int("progress", snap.Progress))
	}
}

// PollAndUpdate reads the status once and writes it onto the task row. A row
// that already reached a terminal status keeps it. Provider errors leave the
// row untouched.
func (p *Poller) PollAndUpdate(ctx context.Context, id string) (*models.Task, *provider.TaskSnapshot, error) {
	snap, err := p.GetResult(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var task models.Task
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, "id = ?", id).Error; err != nil {
			return err
		}

		if !task.Status.IsTerminal() && snap.Status != "" {
			updates := map[string]interface{}{
				"status":      snap.Status,
				"progress":    snap.Progress,
				"result_json": datatypes.JSON(snap.Raw),
			}
			if snap.FailureReason != "" {
				updates["failure_reason"] = snap.FailureReason
			}
			if snap.Error != "" {
				updates["error"] = snap.Error
			}
			terminal := []models.TaskStatus{models.TaskStatusSucceeded, models.TaskStatusFailed}
			if err := tx.Model(&models.Task{}).Where("id = ? AND status NOT IN ?", id, terminal).Updates(updates).Error; err != nil {
				return err
			}
		}

		if snap.Status == models.TaskStatusSucceeded && task.Status != models.TaskStatusFailed {
			if err := saveResults(tx, id, snap.Results); err != nil {
				return err
			}
			if task.Type.IsCharacter() {
				if r, ok := firstResult(snap); ok {
					if _, err := recordCharacter(tx, task.Owner, id, r); err != nil {
						return err
					}
				}
			}
		}

		return tx.Preload("Results").First(&task, "id = ?", id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, snap, nil
	}
	if err != nil {
		return nil, snap, fmt.Errorf("update task %s: %w", id, err)
	}
	return &task, snap, nil
}

func saveResults(tx *gorm.DB, id string, results []provider.Result) error {
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		row := models.TaskResult{
			TaskID:          id,
			URL:             r.URL,
			RemoveWatermark: r.RemoveWatermark,
			PID:             r.PID,
			CharacterID:     r.CharacterID,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// firstResult returns the first result, preferring one with a url. Character
// tasks may report only ids.
func firstResult(snap *provider.TaskSnapshot) (provider.Result, bool) {
	if r, ok := snap.FirstURL(); ok {
		return r, true
	}
	if len(snap.Results) > 0 {
		return snap.Results[0], true
	}
	return provider.Result{}, false
}
