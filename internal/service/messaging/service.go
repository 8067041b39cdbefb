package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coeurdepaille/matching-service/internal/app"
	"github.com/coeurdepaille/matching-service/internal/apperr"
	"github.com/coeurdepaille/matching-service/internal/db"
	"github.com/coeurdepaille/matching-service/internal/repository"
	"github.com/coeurdepaille/matching-service/internal/utils/pagination"
)

const (
	// DefaultMessageWindow is the message count served when the client
	// doesn't ask for a specific limit.
	DefaultMessageWindow = 50
	// MaxMessageWindow caps a client-requested limit.
	MaxMessageWindow = 200

	// maxMessageLen bounds a single message body.
	maxMessageLen = 2000
)

// ProfileCard is the slim other-party view embedded in a conversation
// listing.
type ProfileCard struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// ConversationView is a conversation plus the resolved other
// participant.
type ConversationView struct {
	ID            uuid.UUID  `json:"id"`
	Other         ProfileCard `json:"other"`
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Service implements conversation listing and the per-conversation
// message stream.
type Service struct {
	appCtx      *app.AppContext
	convRepo    *repository.ConversationRepository
	msgRepo     *repository.MessageRepository
	profileRepo *repository.ProfileRepository
}

// NewService creates the messaging service with dependencies from
// AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		convRepo:    repository.NewConversationRepository(appCtx.DB),
		msgRepo:     repository.NewMessageRepository(appCtx.DB),
		profileRepo: repository.NewProfileRepository(appCtx.DB),
	}
}

// ListConversations returns the caller's conversations, most recently
// active first, each with the other participant resolved.
//
// Read policy: store failures degrade to an empty list; a participant
// whose profile is gone renders as "Utilisateur" with an empty avatar.
func (s *Service) ListConversations(ctx context.Context, callerID uint64) []ConversationView {
	convs, err := s.convRepo.ListForUser(ctx, callerID)
	if err != nil {
		s.appCtx.Logger.Error("ListConversations failed", "user_id", callerID, "err", err)
		return []ConversationView{}
	}

	otherIDs := make([]uint64, 0, len(convs))
	for _, c := range convs {
		otherIDs = append(otherIDs, c.OtherParticipant(callerID))
	}
	profiles, err := s.profileRepo.GetByIDs(ctx, otherIDs)
	if err != nil {
		s.appCtx.Logger.Error("ListConversations profile fetch failed", "user_id", callerID, "err", err)
		profiles = map[uint64]db.Profile{}
	}

	views := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		otherID := c.OtherParticipant(callerID)
		card := ProfileCard{ID: otherID, Name: "Utilisateur"}
		if p, ok := profiles[otherID]; ok {
			card.Name = p.Name
			card.Image = p.Image
		}
		views = append(views, ConversationView{
			ID:            c.ID,
			Other:         card,
			LastMessage:   c.LastMessage,
			LastMessageAt: c.LastMessageAt,
			CreatedAt:     c.CreatedAt,
		})
	}
	return views
}

// GetMessages returns a window of the conversation's message stream in
// ascending timestamp order.
//
// Behavior:
//   - Caller must be a participant; a foreign or unknown conversation is
//     reported as not found without leaking which.
//   - limit <= 0 → DefaultMessageWindow, capped at MaxMessageWindow.
//   - The returned token pages back through older history.
func (s *Service) GetMessages(
	ctx context.Context,
	callerID uint64,
	conversationID uuid.UUID,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	if callerID == 0 {
		return nil, nil, apperr.ErrAuthRequired
	}

	conv, err := s.authorizedConversation(ctx, callerID, conversationID)
	if err != nil {
		return nil, nil, err
	}

	if limit <= 0 {
		limit = DefaultMessageWindow
	}
	if limit > MaxMessageWindow {
		limit = MaxMessageWindow
	}

	msgs, nextToken, err := s.msgRepo.GetWindow(ctx, conv.ID, paginationToken, limit)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidToken) {
			return nil, nil, apperr.Validation("invalid pagination token")
		}
		s.appCtx.Logger.Error("GetMessages failed", "conversation_id", conv.ID, "err", err)
		return []db.Message{}, nil, nil
	}
	if msgs == nil {
		msgs = []db.Message{}
	}
	return msgs, nextToken, nil
}

// SendMessage appends a message and refreshes the conversation summary.
//
// Behavior:
//   - Caller must be a participant; text must be non-empty after
//     trimming and within the length bound.
//   - Message insert and summary update run in one transaction, so the
//     summary can never lag the stream.
//
// Example:
//
//	msg, err := svc.SendMessage(ctx, 1, convID, "Bonjour")
func (s *Service) SendMessage(ctx context.Context, callerID uint64, conversationID uuid.UUID, text string) (*db.Message, error) {
	if callerID == 0 {
		return nil, apperr.ErrAuthRequired
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("message text is required")
	}
	if len(text) > maxMessageLen {
		return nil, apperr.Validation("message text too long")
	}

	conv, err := s.authorizedConversation(ctx, callerID, conversationID)
	if err != nil {
		return nil, err
	}

	// Millisecond precision: cursor tokens carry UnixMilli, so a finer
	// stored timestamp would never compare equal to its own cursor and
	// paging could skip rows.
	msg := &db.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       callerID,
		Text:           text,
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}

	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewMessageRepository(tx).Create(ctx, msg); err != nil {
			return err
		}
		return repository.NewConversationRepository(tx).UpdateSummary(ctx, conv.ID, msg.Text, msg.CreatedAt)
	})
	if err != nil {
		s.appCtx.Logger.Error("SendMessage failed", "conversation_id", conv.ID, "err", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}

	return msg, nil
}

// authorizedConversation loads a conversation and checks membership.
func (s *Service) authorizedConversation(ctx context.Context, callerID uint64, id uuid.UUID) (*db.Conversation, error) {
	conv, err := s.convRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("conversation %s", id)
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	if !conv.HasParticipant(callerID) {
		return nil, apperr.NotFound("conversation %s", id)
	}
	return conv, nil
}
