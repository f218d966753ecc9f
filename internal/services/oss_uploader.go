package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"witweb-studio/pkg/logger"
)

const multipartThreshold = 100 * 1024 * 1024 // 100MB

// OSSUploader mirrors stored assets to Aliyun OSS with STS credentials
type OSSUploader struct {
	cfg         OSSConfig
	credentials func(OSSConfig) (*STSCredentials, error)
	now         func() time.Time
	log         *zap.Logger
}

func NewOSSUploader(cfg OSSConfig) *OSSUploader {
	return &OSSUploader{
		cfg:         cfg,
		credentials: GetOSSTSToken,
		now:         time.Now,
		log:         logger.Named("oss"),
	}
}

// Mirror implements Mirror
func (u *OSSUploader) Mirror(ctx context.Context, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	objectKey := ObjectKey(u.now(), localPath)

	info, err := os.Stat(localPath)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", localPath, err)
	}

	uploadErr := u.upload(objectKey, localPath, info.Size())
	if uploadErr != nil {
		// retry once with fresh credentials
		u.log.Warn("upload failed, retrying once", zap.String("key", objectKey), zap.Error(uploadErr))
		uploadErr = u.upload(objectKey, localPath, info.Size())
	}
	if uploadErr != nil {
		return "", fmt.Errorf("upload failed after retry: %w", uploadErr)
	}

	return PublicURL(u.cfg.Endpoint, u.cfg.BucketName, objectKey), nil
}

func (u *OSSUploader) upload(objectKey, localPath string, size int64) error {
	creds, err := u.credentials(u.cfg)
	if err != nil {
		return fmt.Errorf("get STS token: %w", err)
	}

	client, err := oss.New(
		u.cfg.Endpoint,
		creds.AccessKeyId,
		creds.AccessKeySecret,
		oss.SecurityToken(creds.SecurityToken),
		oss.Timeout(60, 120),
	)
	if err != nil {
		return fmt.Errorf("create OSS client: %w", err)
	}

	bucket, err := client.Bucket(u.cfg.BucketName)
	if err != nil {
		return fmt.Errorf("get bucket: %w", err)
	}

	if size > multipartThreshold {
		return bucket.UploadFile(objectKey, localPath, 1024*1024, oss.Routines(3), oss.Checkpoint(true, ""))
	}
	return bucket.PutObjectFromFile(objectKey, localPath)
}

// ObjectKey builds studio/<year>/<month>/<uuid><ext>
func ObjectKey(now time.Time, localPath string) string {
	return fmt.Sprintf("studio/%d/%02d/%s%s", now.Year(), now.Month(), uuid.New().String(), filepath.Ext(localPath))
}

// PublicURL returns the virtual-hosted url of an object
func PublicURL(endpoint, bucket, objectKey string) string {
	scheme := "https"
	host := endpoint
	if before, after, ok := strings.Cut(endpoint, "://"); ok {
		scheme, host = before, after
	}
	host = strings.TrimSuffix(host, "/")
	return fmt.Sprintf("%s://%s.%s/%s", scheme, bucket, host, objectKey)
}
