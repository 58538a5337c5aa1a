package storycontent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Default blob store names. Video and gif binaries live in a separate backend
// from all other media.
const (
	DefaultMediaBackend = "media"
	DefaultVideoBackend = "video"
)

// service implements the Service interface
type service struct {
	repository   Repository
	blobStores   map[string]BlobStore
	prober       Prober
	eventSink    EventSink
	authorizer   Authorizer
	logger       *slog.Logger
	mediaBackend string
	videoBackend string
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend under the given name
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
	}
}

// WithProber sets the media prober for the service
func WithProber(prober Prober) Option {
	return func(s *service) {
		s.prober = prober
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithAuthorizer sets the story authorizer for the service
func WithAuthorizer(authorizer Authorizer) Option {
	return func(s *service) {
		s.authorizer = authorizer
	}
}

// WithLogger sets the structured logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithMediaBackend overrides the backend name used for non-video media
func WithMediaBackend(name string) Option {
	return func(s *service) {
		s.mediaBackend = name
	}
}

// WithVideoBackend overrides the backend name used for video and gif media
func WithVideoBackend(name string) Option {
	return func(s *service) {
		s.videoBackend = name
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores:   make(map[string]BlobStore),
		mediaBackend: DefaultMediaBackend,
		videoBackend: DefaultVideoBackend,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.prober == nil {
		s.prober = NewNoopProber()
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}
	if s.authorizer == nil {
		s.authorizer = NewStoryAuthorizer()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// RegisterBackend registers a blob storage backend under the given name
func (s *service) RegisterBackend(name string, backend BlobStore) {
	s.blobStores[name] = backend
}

// GetBackend returns the blob storage backend registered under the given name
func (s *service) GetBackend(name string) (BlobStore, error) {
	store, ok := s.blobStores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotFound, name)
	}
	return store, nil
}

// storeForKind routes an element kind to its blob store. Video and gif
// references go to the video backend; everything else goes to the media
// backend. A missing video backend falls back to the media backend.
func (s *service) storeForKind(kind ElementKind) (BlobStore, string, error) {
	name := s.mediaBackend
	if kind == KindVideo || kind == KindGif {
		if _, ok := s.blobStores[s.videoBackend]; ok {
			name = s.videoBackend
		}
	}
	store, ok := s.blobStores[name]
	if !ok {
		return nil, name, fmt.Errorf("%w: %s", ErrBackendNotFound, name)
	}
	return store, name, nil
}

// Aggregate operations

func (s *service) CreateStory(ctx context.Context, req CreateStoryRequest) (*Story, error) {
	now := time.Now().UTC()
	story := &Story{
		ID:            uuid.New(),
		AuthorID:      req.AuthorID,
		Title:         req.Title,
		Collaborators: req.Collaborators,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repository.CreateStory(ctx, story); err != nil {
		return nil, fmt.Errorf("failed to create story: %w", err)
	}
	return story, nil
}

func (s *service) GetStory(ctx context.Context, id uuid.UUID) (*Story, error) {
	return s.repository.GetStory(ctx, id)
}

func (s *service) CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error) {
	story, err := s.repository.GetStory(ctx, req.StoryID)
	if err != nil {
		return nil, fmt.Errorf("parent story not found: %w", err)
	}

	now := time.Now().UTC()
	page := &Page{
		ID:        uuid.New(),
		AuthorID:  req.AuthorID,
		Title:     req.Title,
		Content:   ElementList{},
		Place:     req.Place,
		CoverKey:  req.CoverKey,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repository.CreatePage(ctx, page, story.ID); err != nil {
		return nil, &PageError{PageID: page.ID, Op: "create", Err: err}
	}
	return page, nil
}

func (s *service) GetPage(ctx context.Context, id uuid.UUID) (*Page, error) {
	return s.repository.GetActivePage(ctx, id)
}

// ReconcileContent replaces a page's content array with the submitted one:
// it resolves uploaded binaries to their array positions, runs every
// element's media handler concurrently, deletes storage objects orphaned by
// the update, persists the result and notifies collaborators.
func (s *service) ReconcileContent(ctx context.Context, req ReconcileContentRequest) (*Page, error) {
	page, err := s.repository.GetActivePage(ctx, req.PageID)
	if err != nil {
		return nil, &PageError{PageID: req.PageID, Op: "reconcile", Err: err}
	}
	if page.AuthorID != req.UserID {
		return nil, &PageError{PageID: req.PageID, Op: "reconcile", Err: ErrNotPageAuthor}
	}
	story, err := s.repository.GetStoryByPageID(ctx, req.PageID)
	if err != nil {
		return nil, &PageError{PageID: req.PageID, Op: "reconcile", Err: ErrStoryMissing}
	}

	// Snapshot the stored array before touching the submitted elements; the
	// caller may be resubmitting the very same element values.
	previous := marshalContent(page.Content)

	files := ResolveFiles(req.Files)
	now := time.Now().UTC()

	var mintedIDs []string
	for _, el := range req.Content {
		common := el.Common()
		if common.ContentID == "" {
			common.ContentID = MintContentID()
			mintedIDs = append(mintedIDs, common.ContentID)
		}
		if common.Created.IsZero() {
			common.Created = now
		}
		common.Updated = now
	}

	// Handlers run as a fail-fast fan-out: the first error fails the whole
	// call, siblings already issued are not cancelled mid-upload.
	results := make([]Element, len(req.Content))
	g, gctx := errgroup.WithContext(ctx)
	for i, el := range req.Content {
		i, el := i, el
		g.Go(func() error {
			out, err := s.handleElement(gctx, el, files, page, i)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &PageError{PageID: page.ID, Op: "reconcile", Err: err}
	}

	// Elements of unknown kind produce no output and drop out here.
	newContent := make(ElementList, 0, len(results))
	for _, el := range results {
		if el != nil {
			newContent = append(newContent, el)
		}
	}

	intents := computeDeleteIntents(page.Content, newContent, page.ID)
	s.deleteOrphans(ctx, page.ID, intents)

	page.Content = newContent
	page.UpdatedAt = now
	if err := s.repository.UpdatePage(ctx, page); err != nil {
		return nil, &PageError{PageID: page.ID, Op: "persist", Err: err}
	}
	story.UpdatedAt = now
	if err := s.repository.UpdateStory(ctx, story); err != nil {
		return nil, &PageError{PageID: page.ID, Op: "persist", Err: err}
	}

	s.emitContentChanged(ctx, story, page, req.UserID, mintedIDs)
	if !bytes.Equal(previous, marshalContent(newContent)) {
		s.emitStoryChanged(ctx, req.UserID, story, newContent)
	}

	return page, nil
}

// InsertElement appends or splices exactly one element. Unlike the bulk path
// it never reconciles deletions, and it additionally requires the acting user
// to be an editing collaborator on the parent story.
func (s *service) InsertElement(ctx context.Context, req InsertElementRequest) (*Page, error) {
	page, err := s.repository.GetActivePage(ctx, req.PageID)
	if err != nil {
		return nil, &PageError{PageID: req.PageID, Op: "insert", Err: err}
	}
	story, err := s.repository.GetStoryByPageID(ctx, req.PageID)
	if err != nil {
		return nil, &PageError{PageID: req.PageID, Op: "insert", Err: ErrStoryMissing}
	}
	if !s.authorizer.CanEditStory(ctx, req.UserID, story) {
		return nil, &PageError{PageID: req.PageID, Op: "insert", Err: ErrNotCollaborator}
	}
	if page.AuthorID != req.UserID {
		return nil, &PageError{PageID: req.PageID, Op: "insert", Err: ErrNotPageAuthor}
	}

	files := ResolveFiles(req.Files)
	now := time.Now().UTC()

	var mintedIDs []string
	common := req.Element.Common()
	if common.ContentID == "" {
		common.ContentID = MintContentID()
		mintedIDs = append(mintedIDs, common.ContentID)
	}
	if common.Created.IsZero() {
		common.Created = now
	}
	common.Updated = now

	out, err := s.handleElement(ctx, req.Element, files, page, 0)
	if err != nil {
		return nil, &PageError{PageID: page.ID, Op: "insert", Err: err}
	}
	if out == nil {
		// Unknown kinds are dropped, leaving the page untouched.
		return page, nil
	}

	content := make(ElementList, 0, len(page.Content)+1)
	if req.Position != nil && *req.Position >= 0 && *req.Position < len(page.Content) {
		content = append(content, page.Content[:*req.Position]...)
		content = append(content, out)
		content = append(content, page.Content[*req.Position:]...)
	} else {
		content = append(content, page.Content...)
		content = append(content, out)
	}

	page.Content = content
	page.UpdatedAt = now
	if err := s.repository.UpdatePage(ctx, page); err != nil {
		return nil, &PageError{PageID: page.ID, Op: "persist", Err: err}
	}
	story.UpdatedAt = now
	if err := s.repository.UpdateStory(ctx, story); err != nil {
		return nil, &PageError{PageID: page.ID, Op: "persist", Err: err}
	}

	s.emitContentChanged(ctx, story, page, req.UserID, mintedIDs)

	return page, nil
}

// RemoveElement removes one element and deletes its storage objects. Delete
// failures propagate here; only bulk orphan cleanup is best-effort.
func (s *service) RemoveElement(ctx context.Context, req RemoveElementRequest) (*Page, error) {
	page, err := s.repository.GetActivePage(ctx, req.PageID)
	if err != nil {
		return nil, &PageError{PageID: req.PageID, Op: "remove", Err: err}
	}
	if page.AuthorID != req.UserID {
		return nil, &PageError{PageID: req.PageID, Op: "remove", Err: ErrNotPageAuthor}
	}
	story, err := s.repository.GetStoryByPageID(ctx, req.PageID)
	if err != nil {
		return nil, &PageError{PageID: req.PageID, Op: "remove", Err: ErrStoryMissing}
	}

	target := page.ElementByID(req.ContentID)
	if target == nil {
		return nil, &PageError{PageID: req.PageID, Op: "remove", Err: ErrElementNotFound}
	}

	for _, key := range ExtractStorageKeys(target, page.ID) {
		store, backend, err := s.storeForKind(target.Kind())
		if err != nil {
			return nil, &PageError{PageID: page.ID, Op: "remove", Err: err}
		}
		if err := store.Delete(ctx, key); err != nil {
			return nil, &PageError{PageID: page.ID, Op: "remove", Err: &StorageError{Backend: backend, Key: key, Op: "delete", Err: err}}
		}
	}

	content := make(ElementList, 0, len(page.Content)-1)
	for _, el := range page.Content {
		if el.Common().ContentID != req.ContentID {
			content = append(content, el)
		}
	}

	now := time.Now().UTC()
	page.Content = content
	page.UpdatedAt = now
	if err := s.repository.UpdatePage(ctx, page); err != nil {
		return nil, &PageError{PageID: page.ID, Op: "persist", Err: err}
	}
	story.UpdatedAt = now
	if err := s.repository.UpdateStory(ctx, story); err != nil {
		return nil, &PageError{PageID: page.ID, Op: "persist", Err: err}
	}

	s.emitContentChanged(ctx, story, page, req.UserID, nil)

	return page, nil
}

// deleteIntent is one pending storage deletion computed by the pure diff
// step. Kind routes the delete to the right backend.
type deleteIntent struct {
	Key  string
	Kind ElementKind
}

// computeDeleteIntents diffs the previously stored content against the new
// array: every stored element whose content id is absent from the new array
// is orphaned, and each of its storage keys becomes one delete intent. Keys
// are deduplicated across the batch so each is deleted exactly once.
func computeDeleteIntents(old, updated ElementList, pageID uuid.UUID) []deleteIntent {
	kept := make(map[string]struct{}, len(updated))
	for _, el := range updated {
		if id := el.Common().ContentID; id != "" {
			kept[id] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	var intents []deleteIntent
	for _, el := range old {
		if _, ok := kept[el.Common().ContentID]; ok {
			continue
		}
		for _, key := range ExtractStorageKeys(el, pageID) {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			intents = append(intents, deleteIntent{Key: key, Kind: el.Kind()})
		}
	}
	return intents
}

// deleteOrphans issues every delete intent regardless of individual
// failures. Failures are logged and swallowed; orphaned objects left behind
// by a transient failure are not retried.
func (s *service) deleteOrphans(ctx context.Context, pageID uuid.UUID, intents []deleteIntent) {
	for _, intent := range intents {
		store, backend, err := s.storeForKind(intent.Kind)
		if err != nil {
			s.logger.Warn("orphan cleanup skipped, backend unavailable",
				"page_id", pageID, "key", intent.Key, "err", err)
			continue
		}
		if err := store.Delete(ctx, intent.Key); err != nil {
			s.logger.Warn("orphan cleanup failed",
				"page_id", pageID, "backend", backend, "key", intent.Key, "err", err)
		}
	}
}

func (s *service) emitContentChanged(ctx context.Context, story *Story, page *Page, userID uuid.UUID, touchedIDs []string) {
	err := s.eventSink.ContentChanged(ctx, ContentChangedEvent{
		Story:      story,
		Page:       page,
		UserID:     userID,
		TouchedIDs: touchedIDs,
	})
	if err != nil {
		s.logger.Warn("content changed notification failed", "page_id", page.ID, "err", err)
	}
}

func (s *service) emitStoryChanged(ctx context.Context, userID uuid.UUID, story *Story, newContent ElementList) {
	err := s.eventSink.StoryChanged(ctx, StoryChangedEvent{
		UserID:     userID,
		Story:      story,
		NewContent: newContent,
	})
	if err != nil {
		s.logger.Warn("story changed notification failed", "story_id", story.ID, "err", err)
	}
}

// marshalContent serializes a content array for change comparison.
func marshalContent(content ElementList) []byte {
	data, err := json.Marshal(content)
	if err != nil {
		return nil
	}
	return data
}
