package minio

import (
	"context"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/pkg/errors"
)

// ArtifactStore archives the files of a run under <prefix>/<runID>/.
type ArtifactStore struct {
	client *MinIOClient
	logger logging.Logger
}

func NewArtifactStore(client *MinIOClient, log logging.Logger) *ArtifactStore {
	return &ArtifactStore{client: client, logger: logging.OrNop(log)}
}

// ObjectKey returns the key a file is archived under.
func (s *ArtifactStore) ObjectKey(runID, file string) string {
	return path.Join(s.client.config.Prefix, runID, filepath.Base(file))
}

// Publish uploads files in order and returns their object keys. On failure
// the objects already uploaded for this call are removed again.
func (s *ArtifactStore) Publish(ctx context.Context, runID string, files []string) ([]string, error) {
	if runID == "" {
		return nil, errors.InvalidParam("run id is required")
	}
	keys := make([]string, 0, len(files))
	for _, file := range files {
		key := s.ObjectKey(runID, file)
		if err := s.upload(ctx, runID, file, key); err != nil {
			s.rollback(keys)
			return nil, err
		}
		keys = append(keys, key)
	}
	s.logger.Info("Published run artifacts",
		logging.String("run_id", runID),
		logging.String("bucket", s.client.config.Bucket),
		logging.Int("objects", len(keys)),
	)
	return keys, nil
}

func (s *ArtifactStore) upload(ctx context.Context, runID, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageError, "open artifact %s", file)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageError, "stat artifact %s", file)
	}

	opts := minio.PutObjectOptions{
		ContentType:  contentType(file),
		UserMetadata: map[string]string{"run-id": runID},
	}
	if _, err := s.client.GetClient().PutObject(ctx, s.client.config.Bucket, key, f, info.Size(), opts); err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageError, "upload %s", key)
	}
	return nil
}

func (s *ArtifactStore) rollback(keys []string) {
	for _, key := range keys {
		// The caller's context may already be done.
		if err := s.client.GetClient().RemoveObject(context.Background(), s.client.config.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
			s.logger.Warn("Failed to remove partial artifact", logging.String("key", key), logging.Err(err))
		}
	}
}

func contentType(file string) string {
	switch filepath.Ext(file) {
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	if t := mime.TypeByExtension(filepath.Ext(file)); t != "" {
		return t
	}
	return "application/octet-stream"
}

//Personal.AI order the ending
