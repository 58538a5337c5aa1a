// Package api exposes the story-content service over HTTP using chi.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/chronicle/story-content/pkg/storycontent"
)

// maxUploadMemory caps the in-memory portion of multipart parsing; larger
// parts spill to temp files.
const maxUploadMemory = 32 << 20

// ContentHandler serves the story and page content endpoints.
type ContentHandler struct {
	service storycontent.Service
	logger  *slog.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(service storycontent.Service, logger *slog.Logger) *ContentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentHandler{service: service, logger: logger}
}

// Routes returns the router for content operations
func (h *ContentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/stories", h.CreateStory)
	r.Get("/stories/{storyID}", h.GetStory)
	r.Post("/stories/{storyID}/pages", h.CreatePage)

	r.Get("/pages/{pageID}", h.GetPage)
	r.Put("/pages/{pageID}/content", h.UpdateContent)
	r.Post("/pages/{pageID}/content", h.InsertElement)
	r.Delete("/pages/{pageID}/content/{contentID}", h.RemoveElement)

	return r
}

// Request/Response types

type createStoryRequest struct {
	Title         string                      `json:"title"`
	Collaborators []storycontent.Collaborator `json:"collaborators,omitempty"`
}

type createPageRequest struct {
	Title    string              `json:"title"`
	Place    *storycontent.Place `json:"place,omitempty"`
	CoverKey string              `json:"cover_key,omitempty"`
}

// StoryResponse is the wire representation of a story aggregate.
type StoryResponse struct {
	*storycontent.Story
}

// Render implements render.Renderer
func (sr *StoryResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// PageResponse is the wire representation of a page, content array included.
type PageResponse struct {
	*storycontent.Page
}

// Render implements render.Renderer
func (pr *PageResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// CreateStory handles POST /stories
func (h *ContentHandler) CreateStory(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		h.renderError(w, r, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	var req createStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON in request body")
		return
	}

	story, err := h.service.CreateStory(r.Context(), storycontent.CreateStoryRequest{
		AuthorID:      userID,
		Title:         req.Title,
		Collaborators: req.Collaborators,
	})
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.Render(w, r, &StoryResponse{Story: story})
}

// GetStory handles GET /stories/{storyID}
func (h *ContentHandler) GetStory(w http.ResponseWriter, r *http.Request) {
	storyID, err := uuid.Parse(chi.URLParam(r, "storyID"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid_request", "invalid story ID")
		return
	}

	story, err := h.service.GetStory(r.Context(), storyID)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Render(w, r, &StoryResponse{Story: story})
}

// CreatePage handles POST /stories/{storyID}/pages
func (h *ContentHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		h.renderError(w, r, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	storyID, err := uuid.Parse(chi.URLParam(r, "storyID"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid_request", "invalid story ID")
		return
	}

	var req createPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON in request body")
		return
	}

	page, err := h.service.CreatePage(r.Context(), storycontent.CreatePageRequest{
		StoryID:  storyID,
		AuthorID: userID,
		Title:    req.Title,
		Place:    req.Place,
		CoverKey: req.CoverKey,
	})
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.Render(w, r, &PageResponse{Page: page})
}

// GetPage handles GET /pages/{pageID}
func (h *ContentHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	pageID, err := uuid.Parse(chi.URLParam(r, "pageID"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid_request", "invalid page ID")
		return
	}

	page, err := h.service.GetPage(r.Context(), pageID)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Render(w, r, &PageResponse{Page: page})
}

// UpdateContent handles PUT /pages/{pageID}/content. The request is multipart:
// a "content" part carrying the full element array as JSON, plus any number of
// file parts named by the content[i][...] convention.
func (h *ContentHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		h.renderError(w, r, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	pageID, err := uuid.Parse(chi.URLParam(r, "pageID"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid_request", "invalid page ID")
		return
	}

	content, files, err := h.parseContentForm(r)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	page, err := h.service.ReconcileContent(r.Context(), storycontent.ReconcileContentRequest{
		UserID:  userID,
		PageID:  pageID,
		Content: content,
		Files:   files,
	})
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Render(w, r, &PageResponse{Page: page})
}

// InsertElement handles POST /pages/{pageID}/content. The request is
// multipart: an "element" part carrying one element as JSON, an optional
// "position" part, plus file parts for the element's media.
func (h *ContentHandler) InsertElement(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		h.renderError(w, r, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	pageID, err := uuid.Parse(chi.URLParam(r, "pageID"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid_request", "invalid page ID")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid_request", "failed to parse multipart form")
		return
	}

	raw := r.FormValue("element")
	if raw == "" {
		h.renderError(w, r, http.StatusBadRequest, "invalid_request", "element part is required")
		return
	}
	element, err := storycontent.UnmarshalElement([]byte(raw))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid_request", "invalid element JSON")
		return
	}

	var position *int
	if raw := r.FormValue("position"); raw != "" {
		pos, err := strconv.Atoi(raw)
		if err != nil {
			h.renderError(w, r, http.StatusBadRequest, "invalid_request", "invalid position")
			return
		}
		position = &pos
	}

	files, err := collectFiles(r)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	page, err := h.service.InsertElement(r.Context(), storycontent.InsertElementRequest{
		UserID:   userID,
		PageID:   pageID,
		Element:  element,
		Position: position,
		Files:    files,
	})
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Render(w, r, &PageResponse{Page: page})
}

// RemoveElement handles DELETE /pages/{pageID}/content/{contentID}
func (h *ContentHandler) RemoveElement(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		h.renderError(w, r, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	pageID, err := uuid.Parse(chi.URLParam(r, "pageID"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid_request", "invalid page ID")
		return
	}

	contentID := chi.URLParam(r, "contentID")
	if contentID == "" {
		h.renderError(w, r, http.StatusBadRequest, "invalid_request", "content ID is required")
		return
	}

	page, err := h.service.RemoveElement(r.Context(), storycontent.RemoveElementRequest{
		UserID:    userID,
		PageID:    pageID,
		ContentID: contentID,
	})
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Render(w, r, &PageResponse{Page: page})
}

// parseContentForm extracts the content array and uploaded binaries from a
// multipart content update.
func (h *ContentHandler) parseContentForm(r *http.Request) (storycontent.ElementList, []storycontent.UploadedFile, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, nil, errors.New("failed to parse multipart form")
	}

	raw := r.FormValue("content")
	if raw == "" {
		return nil, nil, errors.New("content part is required")
	}

	var content storycontent.ElementList
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, nil, errors.New("invalid content JSON")
	}

	files, err := collectFiles(r)
	if err != nil {
		return nil, nil, err
	}
	return content, files, nil
}

// collectFiles reads every file part into memory, preserving the exact
// multipart field names for index resolution.
func collectFiles(r *http.Request) ([]storycontent.UploadedFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	var files []storycontent.UploadedFile
	for field, headers := range r.MultipartForm.File {
		for _, header := range headers {
			part, err := header.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open uploaded file %q", field)
			}
			data, err := io.ReadAll(part)
			part.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to read uploaded file %q", field)
			}
			files = append(files, storycontent.UploadedFile{
				Field:    field,
				FileName: header.Filename,
				MimeType: header.Header.Get("Content-Type"),
				Data:     data,
			})
		}
	}
	return files, nil
}

// actingUser resolves the authenticated user from the request's JWT claims.
func actingUser(r *http.Request) (uuid.UUID, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return uuid.Nil, errors.New("missing authentication token")
	}
	raw, ok := claims["user_id"].(string)
	if !ok || raw == "" {
		return uuid.Nil, errors.New("token missing user_id claim")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("invalid user_id claim")
	}
	return userID, nil
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Render implements render.Renderer
func (er *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (h *ContentHandler) renderError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.Render(w, r, &ErrorResponse{Error: code, Message: message})
}

// renderServiceError maps domain errors to HTTP statuses.
func (h *ContentHandler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storycontent.ErrPageNotFound),
		errors.Is(err, storycontent.ErrStoryNotFound),
		errors.Is(err, storycontent.ErrElementNotFound):
		h.renderError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, storycontent.ErrNotPageAuthor),
		errors.Is(err, storycontent.ErrNotCollaborator):
		h.renderError(w, r, http.StatusForbidden, "forbidden", err.Error())
	default:
		h.logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		h.renderError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
