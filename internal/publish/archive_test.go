package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"shortform/internal/queue"
	"shortform/internal/services"
)

func TestArchiveUploaderCopiesArtifact(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	artifact := filepath.Join(workDir, "render.mp4")
	require.NoError(t, os.WriteFile(artifact, []byte("video bytes"), 0o644))

	uploader := NewArchiveUploader("youtube", filepath.Join(workDir, "published"))
	item := &queue.Item{ID: 7, ArtifactPath: artifact}

	externalID, err := uploader.Upload(context.Background(), item, queue.PublishMetadata{})
	require.NoError(t, err)
	require.Equal(t, "local:youtube:7", externalID)

	copied, err := os.ReadFile(filepath.Join(workDir, "published", "youtube", "short-7.mp4"))
	require.NoError(t, err)
	require.Equal(t, "video bytes", string(copied))
}

func TestArchiveUploaderRequiresArtifact(t *testing.T) {
	t.Parallel()

	uploader := NewArchiveUploader("tiktok", t.TempDir())
	_, err := uploader.Upload(context.Background(), &queue.Item{ID: 3}, queue.PublishMetadata{})
	require.ErrorIs(t, err, services.ErrValidation)
}
