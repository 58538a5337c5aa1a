package storycontent

import "github.com/google/uuid"

// Request DTOs

// ReconcileContentRequest contains parameters for a full content-array update.
// Content is the client's submitted array in render order; Files are the raw
// uploaded binaries accompanying it.
type ReconcileContentRequest struct {
	UserID  uuid.UUID
	PageID  uuid.UUID
	Content ElementList
	Files   []UploadedFile
}

// InsertElementRequest contains parameters for appending or splicing a single
// element. Position, when set, is the order index to splice at; nil appends.
type InsertElementRequest struct {
	UserID   uuid.UUID
	PageID   uuid.UUID
	Element  Element
	Position *int
	Files    []UploadedFile
}

// RemoveElementRequest contains parameters for removing a single element.
type RemoveElementRequest struct {
	UserID    uuid.UUID
	PageID    uuid.UUID
	ContentID string
}

// CreateStoryRequest contains parameters for creating a story aggregate.
type CreateStoryRequest struct {
	AuthorID      uuid.UUID
	Title         string
	Collaborators []Collaborator
}

// CreatePageRequest contains parameters for creating a page under a story.
type CreatePageRequest struct {
	StoryID  uuid.UUID
	AuthorID uuid.UUID
	Title    string
	Place    *Place
	CoverKey string
}
