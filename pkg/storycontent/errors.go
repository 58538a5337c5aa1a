package storycontent

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrPageNotFound indicates the page does not exist or is inactive
	ErrPageNotFound = errors.New("page not found")

	// ErrStoryNotFound indicates a story was not found
	ErrStoryNotFound = errors.New("story not found")

	// ErrElementNotFound indicates a content element was not found on the page
	ErrElementNotFound = errors.New("content element not found")

	// ErrNotPageAuthor indicates the acting user is not the page's author
	ErrNotPageAuthor = errors.New("user is not the page author")

	// ErrNotCollaborator indicates the acting user may not edit the story
	ErrNotCollaborator = errors.New("user is not an editing collaborator on the story")

	// ErrStoryMissing indicates a page without a parent story; this is an
	// unrecoverable integrity condition, not a client error
	ErrStoryMissing = errors.New("page has no parent story")

	// ErrUploadFailed indicates an upload operation failed
	ErrUploadFailed = errors.New("upload failed")

	// ErrProbeFailed indicates media probing failed
	ErrProbeFailed = errors.New("media probe failed")

	// ErrBackendNotFound indicates no blob store is registered under a name
	ErrBackendNotFound = errors.New("storage backend not found")
)

// PageError represents an error from a page content operation
type PageError struct {
	PageID uuid.UUID
	Op     string
	Err    error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("content operation %s failed for page %s: %v", e.Op, e.PageID, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// ElementError represents an error from a single element's media handler
type ElementError struct {
	ContentID string
	Kind      ElementKind
	Op        string
	Err       error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("%s handler %s failed for element %q: %v", e.Kind, e.Op, e.ContentID, e.Err)
}

func (e *ElementError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
