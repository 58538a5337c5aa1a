package storycontent

import (
	"time"

	"github.com/google/uuid"
)

// ElementKind is the domain type discriminating content element variants.
type ElementKind string

// Content element kind constants (typed).
const (
	KindText      ElementKind = "text"
	KindImage     ElementKind = "image"
	KindGallery   ElementKind = "gallery"
	KindAudio     ElementKind = "audio"
	KindVideo     ElementKind = "video"
	KindGif       ElementKind = "gif"
	KindRecording ElementKind = "recording"
)

// CollaboratorRole is the domain type for story collaborator permissions.
type CollaboratorRole string

// Collaborator role constants (typed).
const (
	RoleEditor CollaboratorRole = "editor"
	RoleViewer CollaboratorRole = "viewer"
)

// LiveBroadcastPrefix marks URLs that point at a live stream rather than a
// stored object. Such references are never treated as storage keys.
const LiveBroadcastPrefix = "rtmp://"

// Place is a geographic annotation attached to a page or a single element.
// All fields are nullable; an empty Place serializes with explicit nulls.
type Place struct {
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
	Name *string  `json:"name"`
	Addr *string  `json:"addr"`
}

// ElementCommon holds the fields shared by every content element variant.
//
// ContentID is the element's stable identity: a time-ordered unique id minted
// once on first creation and never reassigned. MatchID is a client-supplied
// correlation id echoed back unchanged.
type ElementCommon struct {
	ContentID string    `json:"contentId,omitempty"`
	MatchID   string    `json:"matchId,omitempty"`
	Place     Place     `json:"place"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
}

// Common returns the shared fields of the element.
func (c *ElementCommon) Common() *ElementCommon { return c }

// Element is the closed union of content element variants. Each variant embeds
// ElementCommon and reports its discriminator via Kind. StorageKeys returns
// every blob-storage reference held by the element's media-bearing fields.
type Element interface {
	Kind() ElementKind
	Common() *ElementCommon
	StorageKeys() []string
}

// TextElement is a styled text block.
type TextElement struct {
	Type ElementKind `json:"type"`
	ElementCommon
	Text  string `json:"text"`
	Style string `json:"style,omitempty"`
}

func (e *TextElement) Kind() ElementKind     { return KindText }
func (e *TextElement) StorageKeys() []string { return nil }

// ImageElement is a single stored image.
type ImageElement struct {
	Type ElementKind `json:"type"`
	ElementCommon
	Image string `json:"image"`
	Size  int64  `json:"size,omitempty"`
}

func (e *ImageElement) Kind() ElementKind { return KindImage }

func (e *ImageElement) StorageKeys() []string {
	return appendKey(nil, e.Image)
}

// GalleryImage is one image within a gallery section.
type GalleryImage struct {
	ID    string `json:"id"`
	Image string `json:"image"`
	Size  int64  `json:"size,omitempty"`
}

// GallerySection groups an ordered run of gallery images.
type GallerySection struct {
	ID     string         `json:"id"`
	Images []GalleryImage `json:"images"`
}

// GalleryElement is a multi-section photo gallery.
type GalleryElement struct {
	Type ElementKind `json:"type"`
	ElementCommon
	Caption  string           `json:"caption,omitempty"`
	Sections []GallerySection `json:"sections"`
}

func (e *GalleryElement) Kind() ElementKind { return KindGallery }

func (e *GalleryElement) StorageKeys() []string {
	var keys []string
	for _, section := range e.Sections {
		for _, img := range section.Images {
			keys = appendKey(keys, img.Image)
		}
	}
	return keys
}

// AudioElement is an uploaded audio clip with optional cover art.
type AudioElement struct {
	Type ElementKind `json:"type"`
	ElementCommon
	URL      string  `json:"url"`
	Image    string  `json:"image,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Size     int64   `json:"size,omitempty"`
	Title    string  `json:"title,omitempty"`
}

func (e *AudioElement) Kind() ElementKind { return KindAudio }

func (e *AudioElement) StorageKeys() []string {
	return appendKey(appendKey(nil, e.URL), e.Image)
}

// VideoElement is a short video with an extracted still-frame thumbnail.
type VideoElement struct {
	Type ElementKind `json:"type"`
	ElementCommon
	URL      string  `json:"url"`
	Image    string  `json:"image"`
	VideoID  string  `json:"videoId,omitempty"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Size     int64   `json:"size,omitempty"`
	RTMP     string  `json:"rtmp,omitempty"`
}

func (e *VideoElement) Kind() ElementKind { return KindVideo }

func (e *VideoElement) StorageKeys() []string {
	return appendKey(appendKey(nil, e.URL), e.Image)
}

// GifElement is an animated image with an extracted still-frame thumbnail.
type GifElement struct {
	Type ElementKind `json:"type"`
	ElementCommon
	URL   string `json:"url"`
	Image string `json:"image"`
}

func (e *GifElement) Kind() ElementKind { return KindGif }

func (e *GifElement) StorageKeys() []string {
	return appendKey(appendKey(nil, e.URL), e.Image)
}

// RecordingElement is a voice recording. Shape matches audio but the two kinds
// are stored and categorized separately.
type RecordingElement struct {
	Type ElementKind `json:"type"`
	ElementCommon
	URL      string  `json:"url"`
	Image    string  `json:"image,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Size     int64   `json:"size,omitempty"`
	Title    string  `json:"title,omitempty"`
}

func (e *RecordingElement) Kind() ElementKind { return KindRecording }

func (e *RecordingElement) StorageKeys() []string {
	return appendKey(appendKey(nil, e.URL), e.Image)
}

func appendKey(keys []string, key string) []string {
	if key == "" || isLiveBroadcastURL(key) {
		return keys
	}
	return append(keys, key)
}

// Page is a single journal entry: an ordered list of content elements plus
// presentation metadata. A page is owned by exactly one story.
type Page struct {
	ID        uuid.UUID   `json:"id"`
	AuthorID  uuid.UUID   `json:"author_id"`
	Title     string      `json:"title,omitempty"`
	Content   ElementList `json:"content"`
	DateFrom  *time.Time  `json:"date_from,omitempty"`
	DateTo    *time.Time  `json:"date_to,omitempty"`
	Place     *Place      `json:"place,omitempty"`
	CoverKey  string      `json:"cover,omitempty"`
	Active    bool        `json:"active"`
	Deleted   bool        `json:"deleted"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ElementByID returns the stored element with the given content id, or nil.
func (p *Page) ElementByID(contentID string) Element {
	if contentID == "" {
		return nil
	}
	for _, el := range p.Content {
		if el.Common().ContentID == contentID {
			return el
		}
	}
	return nil
}

// Collaborator is a user granted access to a story.
type Collaborator struct {
	UserID uuid.UUID        `json:"user_id"`
	Role   CollaboratorRole `json:"role"`
}

// Story is the parent aggregate owning pages and their collaborators.
type Story struct {
	ID            uuid.UUID      `json:"id"`
	AuthorID      uuid.UUID      `json:"author_id"`
	Title         string         `json:"title,omitempty"`
	PageIDs       []uuid.UUID    `json:"page_ids"`
	Collaborators []Collaborator `json:"collaborators,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
