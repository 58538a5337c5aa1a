package storycontent_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle/story-content/pkg/storycontent"
	"github.com/chronicle/story-content/pkg/storycontent/repo/memory"
	memorystorage "github.com/chronicle/story-content/pkg/storycontent/storage/memory"
)

// captureSink records every emitted notification for assertions.
type captureSink struct {
	contentEvents []storycontent.ContentChangedEvent
	storyEvents   []storycontent.StoryChangedEvent
}

func (c *captureSink) ContentChanged(ctx context.Context, event storycontent.ContentChangedEvent) error {
	c.contentEvents = append(c.contentEvents, event)
	return nil
}

func (c *captureSink) StoryChanged(ctx context.Context, event storycontent.StoryChangedEvent) error {
	c.storyEvents = append(c.storyEvents, event)
	return nil
}

// stubProber returns fixed metadata.
type stubProber struct {
	duration float64
	frame    []byte
	width    int
	height   int
}

func (p *stubProber) ProbeDuration(ctx context.Context, src io.Reader) (float64, error) {
	return p.duration, nil
}

func (p *stubProber) ExtractFrame(ctx context.Context, src io.Reader) ([]byte, error) {
	if p.frame != nil {
		return p.frame, nil
	}
	return io.ReadAll(src)
}

func (p *stubProber) InspectImage(ctx context.Context, src io.Reader) (int, int, error) {
	return p.width, p.height, nil
}

type testEnv struct {
	svc    storycontent.Service
	repo   *memory.Repository
	media  *memorystorage.Backend
	video  *memorystorage.Backend
	sink   *captureSink
	author uuid.UUID
	story  *storycontent.Story
	page   *storycontent.Page
}

func setupEnv(t *testing.T, extra ...storycontent.Option) *testEnv {
	t.Helper()

	env := &testEnv{
		repo:   memory.New(),
		media:  memorystorage.New(),
		video:  memorystorage.New(),
		sink:   &captureSink{},
		author: uuid.New(),
	}

	options := []storycontent.Option{
		storycontent.WithRepository(env.repo),
		storycontent.WithBlobStore(storycontent.DefaultMediaBackend, env.media),
		storycontent.WithBlobStore(storycontent.DefaultVideoBackend, env.video),
		storycontent.WithEventSink(env.sink),
	}
	options = append(options, extra...)

	svc, err := storycontent.New(options...)
	require.NoError(t, err)
	env.svc = svc

	ctx := context.Background()
	env.story, err = svc.CreateStory(ctx, storycontent.CreateStoryRequest{
		AuthorID: env.author,
		Title:    "summer trip",
	})
	require.NoError(t, err)

	env.page, err = svc.CreatePage(ctx, storycontent.CreatePageRequest{
		StoryID:  env.story.ID,
		AuthorID: env.author,
		Title:    "day one",
	})
	require.NoError(t, err)

	return env
}

// seedContent installs stored content on the test page directly.
func (env *testEnv) seedContent(t *testing.T, content storycontent.ElementList) {
	t.Helper()
	page, err := env.repo.GetActivePage(context.Background(), env.page.ID)
	require.NoError(t, err)
	page.Content = content
	require.NoError(t, env.repo.UpdatePage(context.Background(), page))
}

// seedObject stores a blob under the given key in the media backend.
func (env *testEnv) seedObject(t *testing.T, key string) {
	t.Helper()
	err := env.media.Upload(context.Background(), key, strings.NewReader("blob"))
	require.NoError(t, err)
}

func TestServiceCreation(t *testing.T) {
	t.Run("no options should fail", func(t *testing.T) {
		svc, err := storycontent.New()
		assert.Error(t, err)
		assert.Nil(t, svc)
	})

	t.Run("with repository should succeed", func(t *testing.T) {
		svc, err := storycontent.New(storycontent.WithRepository(memory.New()))
		assert.NoError(t, err)
		assert.NotNil(t, svc)
	})
}

func TestBackendRegistry(t *testing.T) {
	svc, err := storycontent.New(storycontent.WithRepository(memory.New()))
	require.NoError(t, err)

	_, err = svc.GetBackend("media")
	assert.ErrorIs(t, err, storycontent.ErrBackendNotFound)

	store := memorystorage.New()
	svc.RegisterBackend("media", store)

	got, err := svc.GetBackend("media")
	require.NoError(t, err)
	assert.Equal(t, storycontent.BlobStore(store), got)
}

func TestReconcileContentTextOnly(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	page, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: storycontent.ElementList{&storycontent.TextElement{Text: "hello"}},
	})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)

	text := page.Content[0].(*storycontent.TextElement)
	assert.NotEmpty(t, text.ContentID)
	assert.Equal(t, "hello", text.Text)
	assert.False(t, text.Created.IsZero())
	assert.Equal(t, text.Created, text.Updated)

	// The minted id is reported with the change notification.
	require.Len(t, env.sink.contentEvents, 1)
	assert.Equal(t, []string{text.ContentID}, env.sink.contentEvents[0].TouchedIDs)
	assert.Len(t, env.sink.storyEvents, 1)

	// Timestamps bump transitively.
	story, err := env.repo.GetStory(ctx, env.story.ID)
	require.NoError(t, err)
	assert.Equal(t, page.UpdatedAt, story.UpdatedAt)
}

func TestReconcileContentImageUpload(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	page, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: storycontent.ElementList{&storycontent.ImageElement{}},
		Files: []storycontent.UploadedFile{
			{Field: "content[0][image]", FileName: "beach.JPG", MimeType: "image/jpeg", Data: []byte("jpegdata")},
		},
	})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)

	image := page.Content[0].(*storycontent.ImageElement)
	assert.True(t, strings.HasPrefix(image.Image, fmt.Sprintf("images/%s/", env.page.ID)))
	assert.True(t, strings.HasSuffix(image.Image, ".jpg"))
	assert.Equal(t, int64(len("jpegdata")), image.Size)

	keys := env.media.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, image.Image, keys[0])
	assert.Empty(t, env.video.Keys())
}

func TestReconcileContentIdempotentResubmission(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	first, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: storycontent.ElementList{&storycontent.ImageElement{}},
		Files: []storycontent.UploadedFile{
			{Field: "content[0][image]", FileName: "beach.jpg", Data: []byte("jpegdata")},
		},
	})
	require.NoError(t, err)
	storedKey := first.Content[0].(*storycontent.ImageElement).Image
	require.Len(t, env.sink.storyEvents, 1)

	// Resubmitting the stored array with no files carries media forward and
	// deletes nothing.
	second, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: first.Content,
	})
	require.NoError(t, err)
	require.Len(t, second.Content, 1)

	image := second.Content[0].(*storycontent.ImageElement)
	assert.Equal(t, storedKey, image.Image)
	assert.Equal(t, first.Content[0].(*storycontent.ImageElement).Size, image.Size)
	assert.Equal(t, []string{storedKey}, env.media.Keys())

	// Content is unchanged, so no second story notification goes out, but the
	// page change itself is still announced.
	assert.Len(t, env.sink.storyEvents, 1)
	assert.Len(t, env.sink.contentEvents, 2)
}

func TestReconcileContentReplacingBinary(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	first, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: storycontent.ElementList{&storycontent.ImageElement{}},
		Files: []storycontent.UploadedFile{
			{Field: "content[0][image]", FileName: "old.jpg", Data: []byte("old")},
		},
	})
	require.NoError(t, err)
	oldImage := first.Content[0].(*storycontent.ImageElement)

	// Same content id, new binary: the element survives the diff, so the old
	// object is not deleted by reconciliation.
	second, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: first.Content,
		Files: []storycontent.UploadedFile{
			{Field: "content[0][image]", FileName: "new.jpg", Data: []byte("newdata")},
		},
	})
	require.NoError(t, err)

	newImage := second.Content[0].(*storycontent.ImageElement)
	assert.Equal(t, oldImage.ContentID, newImage.ContentID)
	assert.NotEqual(t, oldImage.Image, newImage.Image)
	assert.ElementsMatch(t, []string{oldImage.Image, newImage.Image}, env.media.Keys())
}

func TestReconcileContentOrphanCleanup(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	_, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: storycontent.ElementList{&storycontent.ImageElement{}},
		Files: []storycontent.UploadedFile{
			{Field: "content[0][image]", FileName: "beach.jpg", Data: []byte("jpegdata")},
		},
	})
	require.NoError(t, err)
	require.Len(t, env.media.Keys(), 1)

	// Submitting an empty array orphans the image and deletes its object.
	second, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: storycontent.ElementList{},
	})
	require.NoError(t, err)
	assert.Empty(t, second.Content)
	assert.Empty(t, env.media.Keys())
}

func TestReconcileContentEditAndAppend(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	stored := &storycontent.TextElement{Text: "old"}
	stored.ContentID = "a"
	env.seedContent(t, storycontent.ElementList{stored})

	edited := &storycontent.TextElement{Text: "edited"}
	edited.ContentID = "a"

	page, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: storycontent.ElementList{edited, &storycontent.TextElement{Text: "new"}},
	})
	require.NoError(t, err)
	require.Len(t, page.Content, 2)

	first := page.Content[0].(*storycontent.TextElement)
	assert.Equal(t, "a", first.ContentID)
	assert.Equal(t, "edited", first.Text)

	second := page.Content[1].(*storycontent.TextElement)
	assert.NotEmpty(t, second.ContentID)
	assert.NotEqual(t, "a", second.ContentID)

	// Only the appended element's id is reported as newly minted.
	require.Len(t, env.sink.contentEvents, 1)
	assert.Equal(t, []string{second.ContentID}, env.sink.contentEvents[0].TouchedIDs)
}

func TestReconcileContentOrphanCleanupIsBestEffort(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	// Stored element references an object that no longer exists. Cleanup
	// failure must not fail the update.
	stale := &storycontent.ImageElement{Image: fmt.Sprintf("images/%s/gone.jpg", env.page.ID)}
	stale.ContentID = "stale-1"
	env.seedContent(t, storycontent.ElementList{stale})

	page, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: storycontent.ElementList{},
	})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
}

func TestReconcileContentUnknownKindDropped(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	legacyKey := fmt.Sprintf("media/%s/legacy.mov", env.page.ID)
	raw := fmt.Sprintf(`{"type":"moment","contentId":"legacy-1","url":%q}`, legacyKey)
	legacy, err := storycontent.UnmarshalElement([]byte(raw))
	require.NoError(t, err)

	env.seedContent(t, storycontent.ElementList{legacy})
	env.seedObject(t, legacyKey)

	// The legacy element is resubmitted but its kind is unknown: it drops out
	// of the result and its object is reclaimed through the generic key walk.
	page, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: storycontent.ElementList{legacy, &storycontent.TextElement{Text: "kept"}},
	})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, storycontent.KindText, page.Content[0].Kind())
	assert.Empty(t, env.media.Keys())
}

func TestReconcileContentDuplicateKeysDeletedOnce(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	sharedKey := fmt.Sprintf("images/%s/shared.jpg", env.page.ID)
	a := &storycontent.ImageElement{Image: sharedKey}
	a.ContentID = "a"
	b := &storycontent.ImageElement{Image: sharedKey}
	b.ContentID = "b"

	env.seedContent(t, storycontent.ElementList{a, b})
	env.seedObject(t, sharedKey)

	page, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: storycontent.ElementList{},
	})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
	assert.Empty(t, env.media.Keys())
}

func TestReconcileContentAudioUpload(t *testing.T) {
	env := setupEnv(t, storycontent.WithProber(&stubProber{duration: 12.5}))
	ctx := context.Background()

	page, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: storycontent.ElementList{&storycontent.AudioElement{Title: "waves"}},
		Files: []storycontent.UploadedFile{
			{Field: "content[0][audio]", FileName: "waves.mp3", Data: []byte("audiodata")},
			{Field: "content[0][image]", FileName: "cover.png", Data: []byte("coverdata")},
		},
	})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)

	audio := page.Content[0].(*storycontent.AudioElement)
	assert.True(t, strings.HasPrefix(audio.URL, fmt.Sprintf("audio/%s/", env.page.ID)))
	assert.True(t, strings.HasSuffix(audio.URL, ".mp3"))
	assert.True(t, strings.HasSuffix(audio.Image, ".png"))
	assert.Equal(t, 12.5, audio.Duration)
	assert.Equal(t, int64(len("audiodata")), audio.Size)
	assert.Equal(t, "waves", audio.Title)
	assert.Len(t, env.media.Keys(), 2)
}

func TestReconcileContentVideoUpload(t *testing.T) {
	env := setupEnv(t, storycontent.WithProber(&stubProber{frame: []byte("framedata"), width: 1920, height: 1080}))
	ctx := context.Background()

	page, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: storycontent.ElementList{&storycontent.VideoElement{}},
		Files: []storycontent.UploadedFile{
			{Field: "content[0][video]", FileName: "clip.mp4", Data: []byte("videodata")},
		},
	})
	require.NoError(t, err)

	video := page.Content[0].(*storycontent.VideoElement)
	assert.True(t, strings.HasPrefix(video.URL, fmt.Sprintf("videos/%s/", env.page.ID)))
	assert.True(t, strings.HasSuffix(video.Image, ".jpg"))
	assert.Equal(t, 1920, video.Width)
	assert.Equal(t, 1080, video.Height)

	// Clip and extracted frame both land in the video backend.
	assert.Len(t, env.video.Keys(), 2)
	assert.Empty(t, env.media.Keys())
}

func TestReconcileContentVideoFallsBackToMediaBackend(t *testing.T) {
	repo := memory.New()
	media := memorystorage.New()
	sink := &captureSink{}
	svc, err := storycontent.New(
		storycontent.WithRepository(repo),
		storycontent.WithBlobStore(storycontent.DefaultMediaBackend, media),
		storycontent.WithEventSink(sink),
	)
	require.NoError(t, err)

	ctx := context.Background()
	author := uuid.New()
	story, err := svc.CreateStory(ctx, storycontent.CreateStoryRequest{AuthorID: author})
	require.NoError(t, err)
	page, err := svc.CreatePage(ctx, storycontent.CreatePageRequest{StoryID: story.ID, AuthorID: author})
	require.NoError(t, err)

	_, err = svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  author,
		PageID:  page.ID,
		Content: storycontent.ElementList{&storycontent.VideoElement{}},
		Files: []storycontent.UploadedFile{
			{Field: "content[0][video]", FileName: "clip.mp4", Data: []byte("videodata")},
		},
	})
	require.NoError(t, err)
	assert.Len(t, media.Keys(), 2)
}

func TestReconcileContentGallery(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	gallery := &storycontent.GalleryElement{
		Caption: "sunset",
		Sections: []storycontent.GallerySection{
			{Images: []storycontent.GalleryImage{{}, {}}},
		},
	}

	page, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: storycontent.ElementList{gallery},
		Files: []storycontent.UploadedFile{
			{Field: "contents[0][sections][0][images][0][image]", FileName: "a.jpg", Data: []byte("aa")},
			{Field: "contents[0][sections][0][images][1][image]", FileName: "b.jpg", Data: []byte("bbb")},
		},
	})
	require.NoError(t, err)

	out := page.Content[0].(*storycontent.GalleryElement)
	assert.Equal(t, "sunset", out.Caption)
	require.Len(t, out.Sections, 1)
	require.Len(t, out.Sections[0].Images, 2)
	assert.NotEmpty(t, out.Sections[0].ID)

	for i, img := range out.Sections[0].Images {
		assert.NotEmpty(t, img.ID, "image %d id", i)
		assert.True(t, strings.HasPrefix(img.Image, fmt.Sprintf("images/%s/", env.page.ID)))
	}
	assert.Equal(t, int64(2), out.Sections[0].Images[0].Size)
	assert.Equal(t, int64(3), out.Sections[0].Images[1].Size)
	assert.Len(t, env.media.Keys(), 2)
}

func TestReconcileContentGalleryFallsBackToStoredSections(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	stored := &storycontent.GalleryElement{
		Caption: "old caption",
		Sections: []storycontent.GallerySection{
			{ID: "s1", Images: []storycontent.GalleryImage{{ID: "i1", Image: fmt.Sprintf("images/%s/a.jpg", env.page.ID)}}},
		},
	}
	stored.ContentID = "g1"
	env.seedContent(t, storycontent.ElementList{stored})

	// Resubmission with no files keeps the stored sections; only the caption
	// comes from the submission.
	submitted := &storycontent.GalleryElement{Caption: "new caption"}
	submitted.ContentID = "g1"

	page, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Content: storycontent.ElementList{submitted},
	})
	require.NoError(t, err)

	out := page.Content[0].(*storycontent.GalleryElement)
	assert.Equal(t, "new caption", out.Caption)
	require.Len(t, out.Sections, 1)
	assert.Equal(t, stored.Sections[0].Images[0].Image, out.Sections[0].Images[0].Image)
}

func TestReconcileContentAuthorization(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	t.Run("non author is rejected", func(t *testing.T) {
		_, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
			UserID:  uuid.New(),
			PageID:  env.page.ID,
			Content: storycontent.ElementList{},
		})
		assert.ErrorIs(t, err, storycontent.ErrNotPageAuthor)
	})

	t.Run("missing page", func(t *testing.T) {
		_, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
			UserID:  env.author,
			PageID:  uuid.New(),
			Content: storycontent.ElementList{},
		})
		assert.ErrorIs(t, err, storycontent.ErrPageNotFound)
	})
}

func TestInsertElement(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	first, err := env.svc.InsertElement(ctx, storycontent.InsertElementRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Element: &storycontent.TextElement{Text: "first"},
	})
	require.NoError(t, err)
	require.Len(t, first.Content, 1)
	assert.NotEmpty(t, first.Content[0].Common().ContentID)

	t.Run("append without position", func(t *testing.T) {
		page, err := env.svc.InsertElement(ctx, storycontent.InsertElementRequest{
			UserID:  env.author,
			PageID:  env.page.ID,
			Element: &storycontent.TextElement{Text: "last"},
		})
		require.NoError(t, err)
		require.Len(t, page.Content, 2)
		assert.Equal(t, "last", page.Content[1].(*storycontent.TextElement).Text)
	})

	t.Run("splice at position", func(t *testing.T) {
		pos := 0
		page, err := env.svc.InsertElement(ctx, storycontent.InsertElementRequest{
			UserID:   env.author,
			PageID:   env.page.ID,
			Element:  &storycontent.TextElement{Text: "front"},
			Position: &pos,
		})
		require.NoError(t, err)
		require.Len(t, page.Content, 3)
		assert.Equal(t, "front", page.Content[0].(*storycontent.TextElement).Text)
		assert.Equal(t, "first", page.Content[1].(*storycontent.TextElement).Text)
	})

	t.Run("out of range position appends", func(t *testing.T) {
		pos := 99
		page, err := env.svc.InsertElement(ctx, storycontent.InsertElementRequest{
			UserID:   env.author,
			PageID:   env.page.ID,
			Element:  &storycontent.TextElement{Text: "overflow"},
			Position: &pos,
		})
		require.NoError(t, err)
		assert.Equal(t, "overflow", page.Content[len(page.Content)-1].(*storycontent.TextElement).Text)
	})
}

func TestInsertElementWithUpload(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	page, err := env.svc.InsertElement(ctx, storycontent.InsertElementRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Element: &storycontent.ImageElement{},
		Files: []storycontent.UploadedFile{
			{Field: "content[0][image]", FileName: "solo.jpg", Data: []byte("jpegdata")},
		},
	})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)

	image := page.Content[0].(*storycontent.ImageElement)
	assert.True(t, strings.HasPrefix(image.Image, fmt.Sprintf("images/%s/", env.page.ID)))
	assert.Len(t, env.media.Keys(), 1)
}

func TestInsertElementAuthorization(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	t.Run("stranger is rejected", func(t *testing.T) {
		_, err := env.svc.InsertElement(ctx, storycontent.InsertElementRequest{
			UserID:  uuid.New(),
			PageID:  env.page.ID,
			Element: &storycontent.TextElement{Text: "nope"},
		})
		assert.ErrorIs(t, err, storycontent.ErrNotCollaborator)
	})

	t.Run("viewer collaborator is rejected", func(t *testing.T) {
		viewer := uuid.New()
		story, err := env.repo.GetStory(ctx, env.story.ID)
		require.NoError(t, err)
		story.Collaborators = []storycontent.Collaborator{{UserID: viewer, Role: storycontent.RoleViewer}}
		require.NoError(t, env.repo.UpdateStory(ctx, story))

		_, err = env.svc.InsertElement(ctx, storycontent.InsertElementRequest{
			UserID:  viewer,
			PageID:  env.page.ID,
			Element: &storycontent.TextElement{Text: "nope"},
		})
		assert.ErrorIs(t, err, storycontent.ErrNotCollaborator)
	})

	t.Run("editor collaborator still needs page authorship", func(t *testing.T) {
		editor := uuid.New()
		story, err := env.repo.GetStory(ctx, env.story.ID)
		require.NoError(t, err)
		story.Collaborators = []storycontent.Collaborator{{UserID: editor, Role: storycontent.RoleEditor}}
		require.NoError(t, env.repo.UpdateStory(ctx, story))

		_, err = env.svc.InsertElement(ctx, storycontent.InsertElementRequest{
			UserID:  editor,
			PageID:  env.page.ID,
			Element: &storycontent.TextElement{Text: "nope"},
		})
		assert.ErrorIs(t, err, storycontent.ErrNotPageAuthor)
	})
}

func TestInsertElementUnknownKindIsNoop(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	legacy, err := storycontent.UnmarshalElement([]byte(`{"type":"widget"}`))
	require.NoError(t, err)

	page, err := env.svc.InsertElement(ctx, storycontent.InsertElementRequest{
		UserID:  env.author,
		PageID:  env.page.ID,
		Element: legacy,
	})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
	assert.Empty(t, env.sink.contentEvents)
}

func TestRemoveElement(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	first, err := env.svc.ReconcileContent(ctx, storycontent.ReconcileContentRequest{
		UserID: env.author,
		PageID: env.page.ID,
		Content: storycontent.ElementList{
			&storycontent.TextElement{Text: "kept"},
			&storycontent.ImageElement{},
		},
		Files: []storycontent.UploadedFile{
			{Field: "content[1][image]", FileName: "beach.jpg", Data: []byte("jpegdata")},
		},
	})
	require.NoError(t, err)
	imageID := first.Content[1].Common().ContentID
	require.Len(t, env.media.Keys(), 1)

	page, err := env.svc.RemoveElement(ctx, storycontent.RemoveElementRequest{
		UserID:    env.author,
		PageID:    env.page.ID,
		ContentID: imageID,
	})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, storycontent.KindText, page.Content[0].Kind())
	assert.Empty(t, env.media.Keys())
}

func TestRemoveElementNotFound(t *testing.T) {
	env := setupEnv(t)

	_, err := env.svc.RemoveElement(context.Background(), storycontent.RemoveElementRequest{
		UserID:    env.author,
		PageID:    env.page.ID,
		ContentID: "missing",
	})
	assert.ErrorIs(t, err, storycontent.ErrElementNotFound)
}

func TestRemoveElementDeleteFailurePropagates(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	// Element references an object that is not in the store; the single
	// remove path surfaces the failure instead of swallowing it.
	stale := &storycontent.ImageElement{Image: fmt.Sprintf("images/%s/gone.jpg", env.page.ID)}
	stale.ContentID = "stale-1"
	env.seedContent(t, storycontent.ElementList{stale})

	_, err := env.svc.RemoveElement(ctx, storycontent.RemoveElementRequest{
		UserID:    env.author,
		PageID:    env.page.ID,
		ContentID: "stale-1",
	})
	require.Error(t, err)

	var storageErr *storycontent.StorageError
	assert.True(t, errors.As(err, &storageErr))

	// The element stays in place.
	page, err := env.svc.GetPage(ctx, env.page.ID)
	require.NoError(t, err)
	assert.Len(t, page.Content, 1)
}

func TestRemoveElementAuthorization(t *testing.T) {
	env := setupEnv(t)

	_, err := env.svc.RemoveElement(context.Background(), storycontent.RemoveElementRequest{
		UserID:    uuid.New(),
		PageID:    env.page.ID,
		ContentID: "anything",
	})
	assert.ErrorIs(t, err, storycontent.ErrNotPageAuthor)
}

func TestCreatePageRequiresStory(t *testing.T) {
	env := setupEnv(t)

	_, err := env.svc.CreatePage(context.Background(), storycontent.CreatePageRequest{
		StoryID:  uuid.New(),
		AuthorID: env.author,
	})
	assert.ErrorIs(t, err, storycontent.ErrStoryNotFound)
}
