package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle/story-content/pkg/storycontent"
	"github.com/chronicle/story-content/pkg/storycontent/storage/memory"
)

func TestUploadDownload(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	err := backend.Upload(ctx, "images/p/a.jpg", strings.NewReader("jpegdata"))
	require.NoError(t, err)

	rc, err := backend.Download(ctx, "images/p/a.jpg")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(data))
}

func TestUploadWithParamsKeepsMimeType(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	err := backend.UploadWithParams(ctx, strings.NewReader("jpegdata"), storycontent.UploadParams{
		ObjectKey: "images/p/a.jpg",
		MimeType:  "image/jpeg",
	})
	require.NoError(t, err)

	meta, err := backend.GetObjectMeta(ctx, "images/p/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", meta.ContentType)
	assert.Equal(t, int64(len("jpegdata")), meta.Size)
}

func TestDelete(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "images/p/a.jpg", strings.NewReader("x")))
	require.NoError(t, backend.Delete(ctx, "images/p/a.jpg"))
	assert.Empty(t, backend.Keys())

	err := backend.Delete(ctx, "images/p/a.jpg")
	assert.Error(t, err)
}

func TestDownloadMissing(t *testing.T) {
	backend := memory.New()
	_, err := backend.Download(context.Background(), "missing")
	assert.Error(t, err)
}
