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

const (
	DefaultModel    = "sora-2"
	DefaultDuration = 10
	DefaultWebHook  = "-1"

	// LocalOwner owns every task submitted through the unauthenticated studio
	LocalOwner = "local"
)

// TaskParams are the type-specific submission parameters
type TaskParams struct {
	Prompt        string
	Model         string
	Duration      int
	URL           string
	AspectRatio   string
	Size          string
	RemixTargetID string
	PID           string
	Timestamps    string
	WebHook       string
	ShutProgress  *bool
}

// BuildPayload returns the create endpoint and request body for a task type
func BuildPayload(taskType models.TaskType, p TaskParams) (string, map[string]interface{}, error) {
	webHook := p.WebHook
	if webHook == "" {
		webHook = DefaultWebHook
	}

	var path string
	payload := map[string]interface{}{"webHook": webHook}
	switch taskType {
	case models.TaskTypeGenerate:
		path = provider.CreateVideoPath
		model := p.Model
		if model == "" {
			model = DefaultModel
		}
		duration := p.Duration
		if duration <= 0 {
			duration = DefaultDuration
		}
		payload["model"] = model
		payload["prompt"] = p.Prompt
		payload["duration"] = duration
		if p.URL != "" {
			payload["url"] = p.URL
		}
		if p.AspectRatio != "" {
			payload["aspectRatio"] = p.AspectRatio
		}
		if p.Size != "" {
			payload["size"] = p.Size
		}
		if p.RemixTargetID != "" {
			payload["remixTargetId"] = p.RemixTargetID
		}
	case models.TaskTypeUploadCharacter:
		path = provider.UploadCharacterPath
		payload["timestamps"] = p.Timestamps
		if p.URL != "" {
			payload["url"] = p.URL
		}
	case models.TaskTypeCreateCharacter:
		path = provider.CreateCharacterPath
		payload["pid"] = p.PID
		payload["timestamps"] = p.Timestamps
	default:
		return "", nil, fmt.Errorf("unknown task type %q", taskType)
	}
	if p.ShutProgress != nil {
		payload["shutProgress"] = *p.ShutProgress
	}
	return path, payload, nil
}

// TaskService submits jobs and reads the durable task records
type TaskService struct {
	db       *gorm.DB
	client   *provider.Client
	registry *ActiveTaskRegistry
	now      func() time.Time
	log      *zap.Logger
}

func NewTaskService(db *gorm.DB, client *provider.Client, registry *ActiveTaskRegistry) *TaskService {
	return &TaskService{
		db:       db,
		client:   client,
		registry: registry,
		now:      time.Now,
		log:      logger.Named("tasks"),
	}
}

// CreateTask submits a job and persists its task row, registry entry and
// timer. It returns the provider-issued id.
func (s *TaskService) CreateTask(ctx context.Context, owner string, taskType models.TaskType, p TaskParams) (string, error) {
	path, payload, err := BuildPayload(taskType, p)
	if err != nil {
		return "", err
	}

	env, err := s.client.PostJSON(ctx, path, payload)
	if err != nil {
		return "", fmt.Errorf("submit %s task: %w", taskType, err)
	}
	id := provider.ExtractTaskID(env.Data())
	if id == "" {
		return "", ErrMissingTaskID
	}

	model := ""
	duration := 0
	if taskType == models.TaskTypeGenerate {
		model, _ = payload["model"].(string)
		duration, _ = payload["duration"].(int)
	}
	task := models.Task{
		ID:            id,
		Owner:         owner,
		Type:          taskType,
		Status:        models.TaskStatusRunning,
		Prompt:        p.Prompt,
		Model:         model,
		URL:           p.URL,
		AspectRatio:   p.AspectRatio,
		Duration:      duration,
		RemixTargetID: p.RemixTargetID,
		Size:          p.Size,
		PID:           p.PID,
		Timestamps:    p.Timestamps,
	}
	now := s.now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&task).Error; err != nil {
			return err
		}
		registry := &ActiveTaskRegistry{db: tx, now: func() time.Time { return now }}
		if err := registry.Add(ctx, id, displayPrompt(taskType, p)); err != nil {
			return err
		}
		timer := models.TaskTimer{TaskID: id, StartedAt: now}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&timer).Error
	})
	if err != nil {
		// The remote job exists; return its id with the error so callers can still track it.
		return id, fmt.Errorf("persist task %s: %w", id, err)
	}

	s.log.Info("task submitted", zap.String("task_id", id), zap.String("type", string(taskType)), zap.String("owner", owner))
	return id, nil
}

func displayPrompt(taskType models.TaskType, p TaskParams) string {
	switch taskType {
	case models.TaskTypeUploadCharacter:
		return "upload character " + p.Timestamps
	case models.TaskTypeCreateCharacter:
		return "create character from " + p.PID
	}
	return p.Prompt
}

// List returns a page of tasks for owner, newest first
func (s *TaskService) List(ctx context.Context, owner string, page, limit int, taskType models.TaskType) ([]models.Task, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	tasks := []models.Task{}
	var total int64

	db := s.db.WithContext(ctx).Model(&models.Task{}).Where("owner = ?", owner)
	if taskType != "" {
		db = db.Where("type = ?", taskType)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Results").Offset(offset).Limit(limit).Order("created_at desc").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Get returns one task with its results. An empty owner matches any owner.
func (s *TaskService) Get(ctx context.Context, owner, id string) (*models.Task, error) {
	db := s.db.WithContext(ctx).Preload("Results").Where("id = ?", id)
	if owner != "" {
		db = db.Where("owner = ?", owner)
	}
	var task models.Task
	if err := db.First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

// Characters lists the characters owner has created, newest first
func (s *TaskService) Characters(ctx context.Context, owner string) ([]models.Character, error) {
	characters := []models.Character{}
	if err := s.db.WithContext(ctx).Where("owner = ?", owner).Order("created_at desc").Find(&characters).Error; err != nil {
		return nil, err
	}
	return characters, nil
}

// recordCharacter stores the character a succeeded character task produced.
// It is keyed by the source task so repeated calls insert once.
func recordCharacter(tx *gorm.DB, owner, taskID string, r provider.Result) (*models.Character, error) {
	characterID := r.CharacterID
	if characterID == "" {
		characterID = r.PID
	}
	if characterID == "" {
		return nil, nil
	}
	character := models.Character{
		Owner:        owner,
		CharacterID:  characterID,
		SourceTaskID: taskID,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&character).Error; err != nil {
		return nil, fmt.Errorf("record character for %s: %w", taskID, err)
	}
	var stored models.Character
	if err := tx.Where("source_task_id = ?", taskID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}
