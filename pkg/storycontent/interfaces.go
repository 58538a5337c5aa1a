package storycontent

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content
	Delete(ctx context.Context, objectKey string) error

	// GetDownloadURL returns a URL for downloading content
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}

// Repository defines the interface for page and story aggregate persistence.
// A page's content is an ordered, whole-array-replaceable field: UpdatePage
// replaces the stored content verbatim, never merges.
type Repository interface {
	// Story operations
	CreateStory(ctx context.Context, story *Story) error
	GetStory(ctx context.Context, id uuid.UUID) (*Story, error)
	UpdateStory(ctx context.Context, story *Story) error

	// Page operations
	CreatePage(ctx context.Context, page *Page, storyID uuid.UUID) error
	GetActivePage(ctx context.Context, id uuid.UUID) (*Page, error)
	UpdatePage(ctx context.Context, page *Page) error

	// GetStoryByPageID returns the parent story owning the given page
	GetStoryByPageID(ctx context.Context, pageID uuid.UUID) (*Story, error)
}

// Prober defines the interface for derived-metadata extraction from media
// binaries. Implementations may be slow (transcoding tools); callers run them
// inside the issuing request only.
type Prober interface {
	// ProbeDuration returns the playable duration of an audio source in seconds
	ProbeDuration(ctx context.Context, src io.Reader) (float64, error)

	// ExtractFrame returns a representative still frame (JPEG) from a video source
	ExtractFrame(ctx context.Context, src io.Reader) ([]byte, error)

	// InspectImage returns the pixel dimensions of an image source
	InspectImage(ctx context.Context, src io.Reader) (width, height int, err error)
}

// Authorizer decides whether a user may edit a story's pages.
type Authorizer interface {
	// CanEditStory reports whether the user is the story's author or an
	// edit-capable collaborator
	CanEditStory(ctx context.Context, userID uuid.UUID, story *Story) bool
}

// ContentChangedEvent is emitted after a page's content array is persisted.
// TouchedIDs carries only the content ids minted during the operation.
type ContentChangedEvent struct {
	Story      *Story
	Page       *Page
	UserID     uuid.UUID
	TouchedIDs []string
}

// StoryChangedEvent is emitted when a reconciliation actually changed the
// page's content array.
type StoryChangedEvent struct {
	UserID     uuid.UUID
	Story      *Story
	NewContent ElementList
}

// EventSink defines the interface for change notifications
type EventSink interface {
	// ContentChanged is fired after content is persisted
	ContentChanged(ctx context.Context, event ContentChangedEvent) error

	// StoryChanged is fired when the persisted content differs from the
	// previously stored array
	StoryChanged(ctx context.Context, event StoryChangedEvent) error
}
