package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coeurdepaille/matching-service/internal/db"
	"github.com/coeurdepaille/matching-service/internal/utils/pagination"
)

// MessageRepository provides data access for conversation message
// streams.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB
// connection (or transaction).
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Create appends a message to its conversation stream.
func (r *MessageRepository) Create(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// GetWindow returns up to limit messages of a conversation in ascending
// timestamp order (oldest of the window first).
//
// Behavior:
//   - Without a cursor: the limit most recent messages.
//   - With a cursor: the next limit messages older than the cursor
//     position, for scrolling back through history.
//   - A next token is returned while older messages remain.
//
// Example:
//
//	msgs, older, err := repo.GetWindow(ctx, convID, nil, 50)
func (r *MessageRepository) GetWindow(
	ctx context.Context,
	conversationID uuid.UUID,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := time.UnixMilli(cursor.CreatedUnix).UTC()
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.Ref,
		)
	}

	var msgs []db.Message
	if err := query.Find(&msgs).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(msgs) > limit {
		last := msgs[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			Ref:         last.ID.String(),
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		msgs = msgs[:limit]
	}

	// flip newest-first into the ascending order callers render
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, nextToken, nil
}
