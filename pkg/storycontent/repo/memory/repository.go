package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/chronicle/story-content/pkg/storycontent"
)

// Repository implements storycontent.Repository using in-memory storage
type Repository struct {
	mu          sync.RWMutex
	stories     map[uuid.UUID]*storycontent.Story
	pages       map[uuid.UUID]*storycontent.Page
	storyByPage map[uuid.UUID]uuid.UUID // page_id -> story_id
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		stories:     make(map[uuid.UUID]*storycontent.Story),
		pages:       make(map[uuid.UUID]*storycontent.Page),
		storyByPage: make(map[uuid.UUID]uuid.UUID),
	}
}

// Story operations

func (r *Repository) CreateStory(ctx context.Context, story *storycontent.Story) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	storyCopy := *story
	r.stories[story.ID] = &storyCopy
	return nil
}

func (r *Repository) GetStory(ctx context.Context, id uuid.UUID) (*storycontent.Story, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	story, exists := r.stories[id]
	if !exists {
		return nil, storycontent.ErrStoryNotFound
	}
	storyCopy := *story
	return &storyCopy, nil
}

func (r *Repository) UpdateStory(ctx context.Context, story *storycontent.Story) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stories[story.ID]; !exists {
		return storycontent.ErrStoryNotFound
	}
	storyCopy := *story
	r.stories[story.ID] = &storyCopy
	return nil
}

// Page operations

func (r *Repository) CreatePage(ctx context.Context, page *storycontent.Page, storyID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	story, exists := r.stories[storyID]
	if !exists {
		return storycontent.ErrStoryNotFound
	}

	pageCopy := *page
	r.pages[page.ID] = &pageCopy
	r.storyByPage[page.ID] = storyID
	story.PageIDs = append(story.PageIDs, page.ID)
	return nil
}

func (r *Repository) GetActivePage(ctx context.Context, id uuid.UUID) (*storycontent.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	page, exists := r.pages[id]
	if !exists || page.Deleted || !page.Active {
		return nil, storycontent.ErrPageNotFound
	}
	pageCopy := *page
	pageCopy.Content = append(storycontent.ElementList(nil), page.Content...)
	return &pageCopy, nil
}

func (r *Repository) UpdatePage(ctx context.Context, page *storycontent.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pages[page.ID]; !exists {
		return storycontent.ErrPageNotFound
	}
	pageCopy := *page
	pageCopy.Content = append(storycontent.ElementList(nil), page.Content...)
	r.pages[page.ID] = &pageCopy
	return nil
}

func (r *Repository) GetStoryByPageID(ctx context.Context, pageID uuid.UUID) (*storycontent.Story, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	storyID, exists := r.storyByPage[pageID]
	if !exists {
		return nil, storycontent.ErrStoryNotFound
	}
	story, exists := r.stories[storyID]
	if !exists {
		return nil, storycontent.ErrStoryNotFound
	}
	storyCopy := *story
	return &storyCopy, nil
}
