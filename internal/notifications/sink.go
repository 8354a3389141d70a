package notifications

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
)

// Message is one notification addressed to a user.
type Message struct {
	UserID  uuid.UUID
	Type    enums.NotificationType
	Title   string
	Message string
	Link    string
}

// Sink delivers notifications. Delivery is best effort: failures are logged
// and never reach the caller.
type Sink interface {
	Notify(ctx context.Context, msg Message)
}

// InboxSink stores notifications in the user's in-app inbox.
type InboxSink struct {
	repo Repository
	logg *logger.Logger
}

func NewInboxSink(repo Repository, logg *logger.Logger) *InboxSink {
	if logg == nil {
		logg = logger.Nop()
	}
	return &InboxSink{repo: repo, logg: logg}
}

func (s *InboxSink) Notify(ctx context.Context, msg Message) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id":           msg.UserID.String(),
		"notification_type": msg.Type,
	})
	if s.repo == nil || msg.UserID == uuid.Nil || !msg.Type.IsValid() {
		s.logg.Warn(logCtx, "notification dropped")
		return
	}

	row := &models.Notification{
		UserID:  msg.UserID,
		Type:    msg.Type,
		Title:   msg.Title,
		Message: msg.Message,
	}
	if link := strings.TrimSpace(msg.Link); link != "" {
		row.Link = &link
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logg.Error(logCtx, "failed to store notification", err)
	}
}

// NopSink discards every notification.
type NopSink struct{}

func (NopSink) Notify(context.Context, Message) {}

// Recorder keeps notifications in memory. Tests use it to assert deliveries.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

func (r *Recorder) Notify(_ context.Context, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, msg)
}

// OfType returns the recorded messages with the given type.
func (r *Recorder) OfType(typ enums.NotificationType) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, msg := range r.Messages {
		if msg.Type == typ {
			out = append(out, msg)
		}
	}
	return out
}
