package storycontent

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the story-content library
type Service interface {
	// Aggregate operations
	CreateStory(ctx context.Context, req CreateStoryRequest) (*Story, error)
	GetStory(ctx context.Context, id uuid.UUID) (*Story, error)
	CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error)
	GetPage(ctx context.Context, id uuid.UUID) (*Page, error)

	// Content mutation operations
	ReconcileContent(ctx context.Context, req ReconcileContentRequest) (*Page, error)
	InsertElement(ctx context.Context, req InsertElementRequest) (*Page, error)
	RemoveElement(ctx context.Context, req RemoveElementRequest) (*Page, error)

	// Storage backend operations
	RegisterBackend(name string, backend BlobStore)
	GetBackend(name string) (BlobStore, error)
}
