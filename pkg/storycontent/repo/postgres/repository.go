package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronicle/story-content/pkg/storycontent"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements storycontent.Repository using PostgreSQL. A page's
// content array is stored as a single JSONB column and replaced whole on
// every update.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Story operations

func (r *Repository) CreateStory(ctx context.Context, story *storycontent.Story) error {
	collaborators, err := json.Marshal(story.Collaborators)
	if err != nil {
		return fmt.Errorf("failed to encode collaborators: %w", err)
	}

	query := `
		INSERT INTO story.stories (id, author_id, title, collaborators, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.db.Exec(ctx, query,
		story.ID, story.AuthorID, story.Title, collaborators, story.CreatedAt, story.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create story: %w", err)
	}
	return nil
}

func (r *Repository) GetStory(ctx context.Context, id uuid.UUID) (*storycontent.Story, error) {
	query := `
		SELECT id, author_id, title, collaborators, created_at, updated_at
		FROM story.stories WHERE id = $1`

	story, err := r.scanStory(ctx, r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return story, nil
}

func (r *Repository) UpdateStory(ctx context.Context, story *storycontent.Story) error {
	collaborators, err := json.Marshal(story.Collaborators)
	if err != nil {
		return fmt.Errorf("failed to encode collaborators: %w", err)
	}

	query := `
		UPDATE story.stories
		SET author_id = $2, title = $3, collaborators = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		story.ID, story.AuthorID, story.Title, collaborators, story.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update story: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storycontent.ErrStoryNotFound
	}
	return nil
}

// Page operations

func (r *Repository) CreatePage(ctx context.Context, page *storycontent.Page, storyID uuid.UUID) error {
	content, err := json.Marshal(page.Content)
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}
	place, err := marshalNullable(page.Place)
	if err != nil {
		return fmt.Errorf("failed to encode place: %w", err)
	}

	query := `
		INSERT INTO story.pages (
			id, author_id, title, content, date_from, date_to, place,
			cover_key, active, deleted, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.db.Exec(ctx, query,
		page.ID, page.AuthorID, page.Title, content, page.DateFrom, page.DateTo,
		place, page.CoverKey, page.Active, page.Deleted, page.CreatedAt, page.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}

	membership := `
		INSERT INTO story.story_pages (story_id, page_id, position)
		VALUES ($1, $2, (
			SELECT COALESCE(MAX(position), -1) + 1 FROM story.story_pages WHERE story_id = $1
		))`

	if _, err := r.db.Exec(ctx, membership, storyID, page.ID); err != nil {
		return fmt.Errorf("failed to attach page to story: %w", err)
	}
	return nil
}

func (r *Repository) GetActivePage(ctx context.Context, id uuid.UUID) (*storycontent.Page, error) {
	query := `
		SELECT id, author_id, title, content, date_from, date_to, place,
		       cover_key, active, deleted, created_at, updated_at
		FROM story.pages
		WHERE id = $1 AND active AND NOT deleted`

	row := r.db.QueryRow(ctx, query, id)

	var page storycontent.Page
	var content []byte
	var place []byte
	err := row.Scan(&page.ID, &page.AuthorID, &page.Title, &content,
		&page.DateFrom, &page.DateTo, &place, &page.CoverKey,
		&page.Active, &page.Deleted, &page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storycontent.ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	if err := json.Unmarshal(content, &page.Content); err != nil {
		return nil, fmt.Errorf("failed to decode content for page %s: %w", id, err)
	}
	if len(place) > 0 {
		if err := json.Unmarshal(place, &page.Place); err != nil {
			return nil, fmt.Errorf("failed to decode place for page %s: %w", id, err)
		}
	}
	return &page, nil
}

func (r *Repository) UpdatePage(ctx context.Context, page *storycontent.Page) error {
	content, err := json.Marshal(page.Content)
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}
	place, err := marshalNullable(page.Place)
	if err != nil {
		return fmt.Errorf("failed to encode place: %w", err)
	}

	query := `
		UPDATE story.pages
		SET title = $2, content = $3, date_from = $4, date_to = $5, place = $6,
		    cover_key = $7, active = $8, deleted = $9, updated_at = $10
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		page.ID, page.Title, content, page.DateFrom, page.DateTo, place,
		page.CoverKey, page.Active, page.Deleted, page.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storycontent.ErrPageNotFound
	}
	return nil
}

func (r *Repository) GetStoryByPageID(ctx context.Context, pageID uuid.UUID) (*storycontent.Story, error) {
	query := `
		SELECT s.id, s.author_id, s.title, s.collaborators, s.created_at, s.updated_at
		FROM story.stories s
		JOIN story.story_pages sp ON sp.story_id = s.id
		WHERE sp.page_id = $1`

	story, err := r.scanStory(ctx, r.db.QueryRow(ctx, query, pageID))
	if err != nil {
		return nil, err
	}
	return story, nil
}

func (r *Repository) scanStory(ctx context.Context, row pgx.Row) (*storycontent.Story, error) {
	var story storycontent.Story
	var collaborators []byte
	err := row.Scan(&story.ID, &story.AuthorID, &story.Title, &collaborators,
		&story.CreatedAt, &story.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storycontent.ErrStoryNotFound
		}
		return nil, fmt.Errorf("failed to get story: %w", err)
	}

	if len(collaborators) > 0 {
		if err := json.Unmarshal(collaborators, &story.Collaborators); err != nil {
			return nil, fmt.Errorf("failed to decode collaborators for story %s: %w", story.ID, err)
		}
	}

	pages := `
		SELECT page_id FROM story.story_pages
		WHERE story_id = $1 ORDER BY position`

	rows, err := r.db.Query(ctx, pages, story.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list story pages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pageID uuid.UUID
		if err := rows.Scan(&pageID); err != nil {
			return nil, fmt.Errorf("failed to scan story page: %w", err)
		}
		story.PageIDs = append(story.PageIDs, pageID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list story pages: %w", err)
	}

	return &story, nil
}

func marshalNullable(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	switch p := v.(type) {
	case *storycontent.Place:
		if p == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
