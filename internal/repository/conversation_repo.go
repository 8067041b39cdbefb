package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coeurdepaille/matching-service/internal/db"
)

// ConversationRepository provides data access for match conversations.
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new repository bound to the given
// DB connection (or transaction).
func NewConversationRepository(database *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: database}
}

// EnsureForPair creates the conversation for a user pair if it does not
// exist yet and returns it.
//
// Behavior:
//   - The pair is normalized to (low, high), so the unique pair index
//     makes creation race-free: a concurrent duplicate insert is a
//     conflict no-op and both callers read back the same single row.
//   - Returns (conversation, created) where created reports whether this
//     call inserted the row.
//
// Example:
//
//	conv, created, err := repo.EnsureForPair(ctx, 2, 1)
func (r *ConversationRepository) EnsureForPair(ctx context.Context, userA, userB uint64) (*db.Conversation, bool, error) {
	low, high := db.NormalizePair(userA, userB)

	conv := db.Conversation{
		ID:         uuid.New(),
		UserLowID:  low,
		UserHighID: high,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_low_id"}, {Name: "user_high_id"}},
			DoNothing: true,
		}).
		Create(&conv)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected > 0

	// Read back through the pair index: on conflict the generated id
	// above never reached the table.
	var existing db.Conversation
	if err := r.db.WithContext(ctx).
		Where("user_low_id = ? AND user_high_id = ?", low, high).
		First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, created, nil
}

// GetForPair fetches the conversation for a pair, if any. Returns
// gorm.ErrRecordNotFound when the pair never matched.
func (r *ConversationRepository) GetForPair(ctx context.Context, userA, userB uint64) (*db.Conversation, error) {
	low, high := db.NormalizePair(userA, userB)
	var conv db.Conversation
	if err := r.db.WithContext(ctx).
		Where("user_low_id = ? AND user_high_id = ?", low, high).
		First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetByID fetches one conversation.
func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*db.Conversation, error) {
	var conv db.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListForUser returns all conversations the user participates in,
// most recently active first. Conversations without messages yet sort by
// their creation time.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Conversation, error) {
	var convs []db.Conversation
	err := r.db.WithContext(ctx).
		Where("user_low_id = ? OR user_high_id = ?", userID, userID).
		Order("COALESCE(last_message_at, created_at) DESC, id DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

// UpdateSummary refreshes the denormalized last-message fields.
func (r *ConversationRepository) UpdateSummary(ctx context.Context, id uuid.UUID, text string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_message":    text,
			"last_message_at": at,
		}).Error
}
