package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"witweb-studio/internal/models"
)

// ActiveTaskRegistry is the durable list of tasks a client is waiting on.
// Entries are local bookkeeping; removing one leaves the remote job running.
type ActiveTaskRegistry struct {
	db  *gorm.DB
	now func() time.Time
}

func NewActiveTaskRegistry(db *gorm.DB) *ActiveTaskRegistry {
	return &ActiveTaskRegistry{db: db, now: time.Now}
}

// Add inserts an entry; adding an id twice is a no-op
func (r *ActiveTaskRegistry) Add(ctx context.Context, id, prompt string) error {
	entry := models.ActiveTask{
		ID:        id,
		Prompt:    prompt,
		StartedAt: r.now(),
		State:     models.ActiveTaskTracking,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
		return fmt.Errorf("add active task %s: %w", id, err)
	}
	return nil
}

func (r *ActiveTaskRegistry) Remove(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&models.ActiveTask{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("remove active task %s: %w", id, err)
	}
	return nil
}

// List returns every entry, most recently started first
func (r *ActiveTaskRegistry) List(ctx context.Context) ([]models.ActiveTask, error) {
	entries := []models.ActiveTask{}
	if err := r.db.WithContext(ctx).Order("started_at desc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list active tasks: %w", err)
	}
	return entries, nil
}

// Tracking returns the entries still being polled
func (r *ActiveTaskRegistry) Tracking(ctx context.Context) ([]models.ActiveTask, error) {
	var entries []models.ActiveTask
	err := r.db.WithContext(ctx).
		Where("state = ?", models.ActiveTaskTracking).
		Order("started_at asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list tracking tasks: %w", err)
	}
	return entries, nil
}

func (r *ActiveTaskRegistry) Get(ctx context.Context, id string) (*models.ActiveTask, error) {
	var entry models.ActiveTask
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *ActiveTaskRegistry) MarkFailed(ctx context.Context, id, detail string) error {
	return r.mark(ctx, id, models.ActiveTaskFailed, detail)
}

func (r *ActiveTaskRegistry) MarkStalled(ctx context.Context, id, detail string) error {
	return r.mark(ctx, id, models.ActiveTaskStalled, detail)
}

func (r *ActiveTaskRegistry) mark(ctx context.Context, id string, state models.ActiveTaskState, detail string) error {
	err := r.db.WithContext(ctx).Model(&models.ActiveTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"state": state, "detail": detail}).Error
	if err != nil {
		return fmt.Errorf("mark active task %s %s: %w", id, state, err)
	}
	return nil
}
