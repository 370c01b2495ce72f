package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"shortform/internal/fileutil"
	"shortform/internal/queue"
	"shortform/internal/services"
)

// ArchiveUploader stages a rendered artifact into a per-platform directory
// instead of calling a real platform API. It stands in for platform uploads
// when no API credentials are configured and keeps the publish flow testable
// end to end.
type ArchiveUploader struct {
	platform string
	rootDir  string
}

// NewArchiveUploader returns an uploader that copies artifacts under
// rootDir/<platform>/.
func NewArchiveUploader(platform, rootDir string) *ArchiveUploader {
	return &ArchiveUploader{platform: platform, rootDir: rootDir}
}

func (a *ArchiveUploader) Platform() string { return a.platform }

func (a *ArchiveUploader) Upload(ctx context.Context, item *queue.Item, meta queue.PublishMetadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if item.ArtifactPath == "" {
		return "", services.Wrap(services.ErrValidation, "publishing", "upload", "item has no rendered artifact", nil)
	}
	destDir := filepath.Join(a.rootDir, a.platform)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}
	dest := filepath.Join(destDir, fmt.Sprintf("short-%d%s", item.ID, filepath.Ext(item.ArtifactPath)))
	if err := fileutil.CopyFileVerified(item.ArtifactPath, dest); err != nil {
		return "", fmt.Errorf("archive artifact: %w", err)
	}
	return fmt.Sprintf("local:%s:%d", a.platform, item.ID), nil
}
