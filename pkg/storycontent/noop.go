package storycontent

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
// Useful when no downstream collaborators consume change notifications
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// ContentChanged does nothing and returns nil
func (n *NoopEventSink) ContentChanged(ctx context.Context, event ContentChangedEvent) error {
	return nil
}

// StoryChanged does nothing and returns nil
func (n *NoopEventSink) StoryChanged(ctx context.Context, event StoryChangedEvent) error {
	return nil
}

// LogEventSink logs change notifications through a structured logger.
type LogEventSink struct {
	logger *slog.Logger
}

// NewLogEventSink creates an event sink that logs every notification
func NewLogEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEventSink{logger: logger}
}

func (l *LogEventSink) ContentChanged(ctx context.Context, event ContentChangedEvent) error {
	l.logger.Info("content changed",
		"story_id", event.Story.ID,
		"page_id", event.Page.ID,
		"user_id", event.UserID,
		"touched_ids", event.TouchedIDs)
	return nil
}

func (l *LogEventSink) StoryChanged(ctx context.Context, event StoryChangedEvent) error {
	l.logger.Info("story changed",
		"story_id", event.Story.ID,
		"user_id", event.UserID,
		"elements", len(event.NewContent))
	return nil
}

// NoopProber is a no-operation implementation of Prober. It reports zero
// durations and dimensions and returns the source bytes as the still frame.
type NoopProber struct{}

// NewNoopProber creates a new no-operation prober
func NewNoopProber() Prober {
	return &NoopProber{}
}

func (n *NoopProber) ProbeDuration(ctx context.Context, src io.Reader) (float64, error) {
	return 0, nil
}

func (n *NoopProber) ExtractFrame(ctx context.Context, src io.Reader) ([]byte, error) {
	return io.ReadAll(src)
}

func (n *NoopProber) InspectImage(ctx context.Context, src io.Reader) (int, int, error) {
	return 0, 0, nil
}

// StoryAuthorizer grants edit access to the story's author and to
// collaborators holding the editor role.
type StoryAuthorizer struct{}

// NewStoryAuthorizer creates the default story authorizer
func NewStoryAuthorizer() Authorizer {
	return &StoryAuthorizer{}
}

func (a *StoryAuthorizer) CanEditStory(ctx context.Context, userID uuid.UUID, story *Story) bool {
	if story == nil {
		return false
	}
	if story.AuthorID == userID {
		return true
	}
	for _, c := range story.Collaborators {
		if c.UserID == userID && c.Role == RoleEditor {
			return true
		}
	}
	return false
}
