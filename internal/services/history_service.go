package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gorm.io/gorm"

	"witweb-studio/internal/models"
)

// VideoAsset is a playable file in the download directory
type VideoAsset struct {
	Name            string `json:"name"`
	Size            int64  `json:"size"`
	Mtime           int64  `json:"mtime"`
	URL             string `json:"url"`
	GeneratedTime   int64  `json:"generated_time"`
	DurationSeconds *int64 `json:"duration_seconds"`
	Prompt          string `json:"prompt"`
	TaskID          string `json:"id,omitempty"`
}

// HistoryService reads materialized artifacts
type HistoryService struct {
	db        *gorm.DB
	store     *ArtifactStore
	urlPrefix string
}

func NewHistoryService(db *gorm.DB, store *ArtifactStore) *HistoryService {
	return &HistoryService{db: db, store: store, urlPrefix: "/downloads/"}
}

// History returns every materialized record, newest first
func (s *HistoryService) History(ctx context.Context) ([]models.HistoryRecord, error) {
	records := []models.HistoryRecord{}
	err := s.db.WithContext(ctx).
		Where("state = ?", models.HistoryMaterialized).
		Order("generated_at desc, id desc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}

// ListVideos joins the .mp4 files on disk with their history records
func (s *HistoryService) ListVideos(ctx context.Context) ([]VideoAsset, error) {
	items := []VideoAsset{}
	entries, err := os.ReadDir(s.store.Dir())
	if errors.Is(err, os.ErrNotExist) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read download dir: %w", err)
	}

	records, err := s.History(ctx)
	if err != nil {
		return nil, err
	}
	byFile := make(map[string]models.HistoryRecord, len(records))
	for _, r := range records {
		byFile[filepath.Base(r.File)] = r
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".mp4") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		item := VideoAsset{
			Name:          e.Name(),
			Size:          info.Size(),
			Mtime:         info.ModTime().Unix(),
			URL:           s.urlPrefix + e.Name(),
			GeneratedTime: info.ModTime().Unix(),
		}
		if r, ok := byFile[e.Name()]; ok {
			item.GeneratedTime = r.Time
			item.DurationSeconds = r.DurationSeconds
			item.Prompt = r.Prompt
			item.TaskID = r.TaskID
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Mtime > items[j].Mtime
	})
	return items, nil
}

// DeleteVideo removes a stored file and the history rows pointing at it.
// name must be a bare file name inside the download directory.
func (s *HistoryService) DeleteVideo(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return ErrInvalidVideoName
	}

	info, err := os.Stat(s.store.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return ErrVideoNotFound
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		return ErrInvalidVideoName
	}

	if err := s.store.Remove(name); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	if err := s.db.WithContext(ctx).Where("file = ?", name).Delete(&models.HistoryRecord{}).Error; err != nil {
		return fmt.Errorf("delete history for %s: %w", name, err)
	}
	return nil
}
