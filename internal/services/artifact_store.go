package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"witweb-studio/internal/utils"
	"witweb-studio/pkg/logger"
)

// ArtifactStore keeps downloaded assets in a single local directory
type ArtifactStore struct {
	dir        string
	httpClient *http.Client
	now        func() time.Time
	log        *zap.Logger
}

func NewArtifactStore(dir string, httpClient *http.Client) *ArtifactStore {
	if httpClient == nil {
		httpClient = utils.NewHTTPClient(10 * time.Minute)
	}
	return &ArtifactStore{
		dir:        dir,
		httpClient: httpClient,
		now:        time.Now,
		log:        logger.Named("artifacts"),
	}
}

func (s *ArtifactStore) Dir() string {
	return s.dir
}

// Path returns the absolute location of a stored asset
func (s *ArtifactStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Download fetches rawURL into a freshly named file and returns the name
func (s *ArtifactStore) Download(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	name := fmt.Sprintf("sora_%d_%s.mp4", s.now().Unix(), uuid.New().String()[:8])
	if err := copyAtomic(s.Path(name), resp.Body); err != nil {
		return "", err
	}
	s.log.Info("asset stored", zap.String("file", name), zap.String("source", rawURL))
	return name, nil
}

// Remove deletes a stored asset
func (s *ArtifactStore) Remove(name string) error {
	return os.Remove(s.Path(name))
}

// copyAtomic writes reader to filename through a temp file in the same
// directory so readers never observe a partial asset.
func copyAtomic(filename string, reader io.Reader) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tempFile.Name()
	if _, err := io.Copy(tempFile, reader); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("copy to temp: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp: %w", err)
	}
	return nil
}
