package storycontent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle/story-content/pkg/storycontent"
)

func TestUploadedFileExt(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		want     string
	}{
		{"lowercase extension", "photo.jpg", "jpg"},
		{"uppercase extension", "PHOTO.JPG", "jpg"},
		{"no extension", "photo", "bin"},
		{"dotfile", ".env", "env"},
		{"multiple dots", "a.b.mp3", "mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := storycontent.UploadedFile{FileName: tt.fileName}
			assert.Equal(t, tt.want, f.Ext())
		})
	}
}

func TestResolveFilesIndexing(t *testing.T) {
	files := []storycontent.UploadedFile{
		{Field: "content[0][image]", FileName: "a.jpg"},
		{Field: "content[2][audio]", FileName: "b.mp3"},
		{Field: "content[2][image]", FileName: "c.jpg"},
	}

	rf := storycontent.ResolveFiles(files)

	slot0 := rf.Slot(0)
	require.NotNil(t, slot0)
	assert.Equal(t, "a.jpg", slot0.Image.FileName)
	assert.Nil(t, slot0.Audio)

	slot2 := rf.Slot(2)
	require.NotNil(t, slot2)
	assert.Equal(t, "b.mp3", slot2.Audio.FileName)
	assert.Equal(t, "c.jpg", slot2.Image.FileName)

	assert.Nil(t, rf.Slot(1))
}

func TestResolveFilesSlotPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		fields    []string
		wantImage bool
		wantAudio bool
		wantVideo bool
	}{
		{
			name:      "image alone",
			fields:    []string{"content[0][image]"},
			wantImage: true,
		},
		{
			name:      "audio with cover image",
			fields:    []string{"content[0][audio]", "content[0][image]"},
			wantAudio: true, wantImage: true,
		},
		{
			name:      "video with thumbnail image",
			fields:    []string{"content[0][video]", "content[0][image]"},
			wantVideo: true, wantImage: true,
		},
		{
			name:      "video alone",
			fields:    []string{"content[0][video]"},
			wantVideo: true,
		},
		{
			name:      "audio alone",
			fields:    []string{"content[0][audio]"},
			wantAudio: true,
		},
		{
			name:      "audio wins over video when image present",
			fields:    []string{"content[0][audio]", "content[0][video]", "content[0][image]"},
			wantAudio: true, wantImage: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var files []storycontent.UploadedFile
			for _, field := range tt.fields {
				files = append(files, storycontent.UploadedFile{Field: field, FileName: "f"})
			}

			slot := storycontent.ResolveFiles(files).Slot(0)
			require.NotNil(t, slot)
			assert.Equal(t, tt.wantImage, slot.Image != nil, "image")
			assert.Equal(t, tt.wantAudio, slot.Audio != nil, "audio")
			assert.Equal(t, tt.wantVideo, slot.Video != nil, "video")
		})
	}
}

func TestResolveFilesExcludesSections(t *testing.T) {
	files := []storycontent.UploadedFile{
		{Field: "contents[0][sections][0][images][1][image]", FileName: "gallery.jpg"},
		{Field: "content[0][image]", FileName: "flat.jpg"},
	}

	rf := storycontent.ResolveFiles(files)

	// Gallery files never resolve through the index map. The first integer
	// in the section field would otherwise collide with index 0.
	slot := rf.Slot(0)
	require.NotNil(t, slot)
	assert.Equal(t, "flat.jpg", slot.Image.FileName)

	// They stay reachable by exact field name.
	found := rf.Lookup("contents[0][sections][0][images][1][image]")
	require.NotNil(t, found)
	assert.Equal(t, "gallery.jpg", found.FileName)
}

func TestResolveFilesIgnoresUnindexedFields(t *testing.T) {
	rf := storycontent.ResolveFiles([]storycontent.UploadedFile{
		{Field: "cover", FileName: "cover.jpg"},
	})
	assert.Empty(t, rf.ByIndex)
}

func TestGalleryImageField(t *testing.T) {
	assert.Equal(t, "contents[3][sections][1][images][2][image]",
		storycontent.GalleryImageField(3, 1, 2))
}
